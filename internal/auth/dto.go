// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Username      string `json:"username"      validate:"required,min=3,max=64,excludes=:"`
	Password      string `json:"password"      validate:"required,min=6,max=128"`
	TermsAccepted bool   `json:"termsAccepted"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Coins         int       `json:"coins"`
	TermsAccepted bool      `json:"termsAccepted"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User      UserResponse `json:"user"`
	AuthToken string       `json:"authToken"`
}

// AuthResult is what the service hands the handler: the response body
// plus the session cookie value to set.
type AuthResult struct {
	AuthResponse
	Cookie string
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Coins:         u.Coins,
		TermsAccepted: u.TermsAccepted,
		CreatedAt:     u.CreatedAt,
	}
}
