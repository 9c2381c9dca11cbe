// AngelaMos | 2026
// rating_test.go

package rating

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/core"
	"github.com/saathi-labs/companion-api/internal/middleware"
)

const userID = "11111111-1111-1111-1111-111111111111"

type memoryRepo struct {
	ratings []Rating
}

func (m *memoryRepo) Create(_ context.Context, r *Rating) error {
	if r.CharacterID > 100 {
		return fmt.Errorf("create rating: %w", core.ErrInvalidInput)
	}
	r.ID = int64(len(m.ratings) + 1)
	m.ratings = append(m.ratings, *r)
	return nil
}

func TestRate(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)
	conv := int64(9)

	rt, err := svc.Rate(context.Background(), userID, 2, &conv, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rt.ID)
	assert.Equal(t, userID, repo.ratings[0].UserID)
	assert.Equal(t, &conv, repo.ratings[0].ConversationID)

	for _, stars := range []int{0, 6, -1} {
		_, err := svc.Rate(context.Background(), userID, 2, nil, stars)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}

	_, err = svc.Rate(context.Background(), userID, 0, nil, 3)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Len(t, repo.ratings, 1)
}

func TestHandlerCreate(t *testing.T) {
	repo := &memoryRepo{}
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.IdentityKey, &middleware.Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	r := chi.NewRouter()
	NewHandler(NewService(repo, nil)).RegisterRoutes(r, auth)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"characterId":1,"rating":4}`, http.StatusOK},
		{"with conversation", `{"characterId":1,"conversationId":3,"rating":1}`, http.StatusOK},
		{"too high", `{"characterId":1,"rating":6}`, http.StatusBadRequest},
		{"zero", `{"characterId":1,"rating":0}`, http.StatusBadRequest},
		{"missing character", `{"rating":3}`, http.StatusBadRequest},
		{"unknown character", `{"characterId":500,"rating":3}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), invalidRatingMessage)
			}
		})
	}

	assert.Len(t, repo.ratings, 2)
}
