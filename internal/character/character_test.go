// AngelaMos | 2026
// character_test.go

package character

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi-labs/companion-api/internal/core"
)

type memoryRepo struct {
	mu    sync.Mutex
	items []Character
}

func (m *memoryRepo) ListActive(context.Context) ([]Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Character
	for _, c := range m.items {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memoryRepo) GetByKey(_ context.Context, key string) (*Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.Key == key {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get character: %w", core.ErrNotFound)
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get character: %w", core.ErrNotFound)
}

func (m *memoryRepo) Create(_ context.Context, c *Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Key == c.Key {
			return fmt.Errorf("create character: %w", core.ErrDuplicateKey)
		}
	}
	c.ID = int64(len(m.items) + 1)
	c.CreatedAt = time.Now()
	m.items = append(m.items, *c)
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, p Patch) (*Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		c := &m.items[i]
		if c.ID != id {
			continue
		}
		if p.Name != nil {
			c.Name = *p.Name
		}
		if p.IsActive != nil {
			c.IsActive = *p.IsActive
		}
		if p.SystemPrompt != nil {
			c.SystemPrompt = *p.SystemPrompt
		}
		out := *c
		return &out, nil
	}
	return nil, fmt.Errorf("update character: %w", core.ErrNotFound)
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	require.NoError(t, svc.SeedDefaults(ctx))
	require.NoError(t, svc.SeedDefaults(ctx))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(Defaults))

	keys := make([]string, 0, len(list))
	for _, c := range list {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"priya", "neha", "anjali", "khushi"}, keys)
}

func TestSeedSkipsPopulatedCatalogue(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}
	require.NoError(t, repo.Create(ctx, &Character{Key: "custom", IsActive: true}))

	require.NoError(t, NewService(repo, nil).SeedDefaults(ctx))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func newTestRouter(t *testing.T) (chi.Router, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	svc := NewService(repo, nil)
	require.NoError(t, svc.SeedDefaults(context.Background()))

	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Route("/admin", h.RegisterAdminRoutes)
	return r, repo
}

func TestHandlerListHidesInactive(t *testing.T) {
	r, repo := newTestRouter(t)
	inactive := false
	_, err := repo.Update(context.Background(), 2, Patch{IsActive: &inactive})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/characters", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool       `json:"success"`
		Data    []Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, len(Defaults)-1)
	for _, c := range body.Data {
		assert.NotEqual(t, "neha", c.Key)
	}
}

func TestHandlerGetByKey(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/characters/anjali", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Anjali"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/characters/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAdminWrites(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("create", func(t *testing.T) {
		body := `{"key":"meera","name":"Meera","avatar":"https://example.com/m.png",
			"intro":"Hi, I'm Meera","systemPrompt":"You are Meera."}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/characters", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"isActive":true`)
	})

	t.Run("create duplicate key", func(t *testing.T) {
		body := `{"key":"priya","name":"Priya","avatar":"https://example.com/p.png",
			"intro":"dup","systemPrompt":"dup"}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/characters", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create missing prompt", func(t *testing.T) {
		body := `{"key":"tara","name":"Tara","avatar":"https://example.com/t.png","intro":"hi"}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/characters", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/characters/1",
			strings.NewReader(`{"name":"Priya Sharma"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Priya Sharma"`)
		assert.Contains(t, rec.Body.String(), `"key":"priya"`)
	})

	t.Run("update unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/characters/999",
			strings.NewReader(`{"name":"x"}`)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update bad id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/characters/abc",
			strings.NewReader(`{"name":"x"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
