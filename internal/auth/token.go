// AngelaMos | 2026
// token.go

package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClientToken is the opaque "userId:username:timestampMillis" credential
// clients send when cookies are unavailable. It carries no signature or
// expiry; the gate only checks the username against the stored user.
type ClientToken struct {
	UserID   string
	Username string
	IssuedAt time.Time
}

var ErrMalformedToken = errors.New("malformed auth token")

func EncodeToken(userID, username string, issuedAt time.Time) string {
	raw := userID + ":" + username + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func DecodeToken(token string) (*ClientToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("decode token: %w", ErrMalformedToken)
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("decode token: %w", ErrMalformedToken)
		}
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("decode token: %w", ErrMalformedToken)
	}

	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode token timestamp: %w", ErrMalformedToken)
	}

	return &ClientToken{
		UserID:   parts[0],
		Username: parts[1],
		IssuedAt: time.UnixMilli(ms),
	}, nil
}
