// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UserResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Coins         int        `json:"coins"`
	TermsAccepted bool       `json:"termsAccepted"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type DetailResponse struct {
	UserResponse
	TotalMessages int  `json:"totalMessages"`
	HasPaid       bool `json:"hasPaid"`
	PaymentCount  int  `json:"paymentCount"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Coins:         u.Coins,
		TermsAccepted: u.TermsAccepted,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

func ToDetailResponseList(users []Detail) []DetailResponse {
	responses := make([]DetailResponse, 0, len(users))
	for i := range users {
		d := &users[i]
		responses = append(responses, DetailResponse{
			UserResponse:  ToUserResponse(&d.User),
			TotalMessages: d.TotalMessages,
			HasPaid:       d.HasPaid(),
			PaymentCount:  d.PaymentCount,
		})
	}
	return responses
}
