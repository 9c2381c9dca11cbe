// AngelaMos | 2026
// dto.go

package character

import (
	"time"
)

type CreateRequest struct {
	Key            string `json:"key"            validate:"required,min=2,max=32,alphanum,lowercase"`
	Name           string `json:"name"           validate:"required,max=64"`
	Avatar         string `json:"avatar"         validate:"required,url"`
	Intro          string `json:"intro"          validate:"required,max=500"`
	WelcomeMessage string `json:"welcomeMessage" validate:"max=1000"`
	Personality    string `json:"personality"    validate:"max=500"`
	SystemPrompt   string `json:"systemPrompt"   validate:"required,max=4000"`
	IsActive       *bool  `json:"isActive"`
}

func (r CreateRequest) toCharacter() *Character {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &Character{
		Key:            r.Key,
		Name:           r.Name,
		Avatar:         r.Avatar,
		Intro:          r.Intro,
		WelcomeMessage: r.WelcomeMessage,
		Personality:    r.Personality,
		SystemPrompt:   r.SystemPrompt,
		IsActive:       active,
	}
}

type UpdateRequest struct {
	Name           *string `json:"name"           validate:"omitempty,max=64"`
	Avatar         *string `json:"avatar"         validate:"omitempty,url"`
	Intro          *string `json:"intro"          validate:"omitempty,max=500"`
	WelcomeMessage *string `json:"welcomeMessage" validate:"omitempty,max=1000"`
	Personality    *string `json:"personality"    validate:"omitempty,max=500"`
	SystemPrompt   *string `json:"systemPrompt"   validate:"omitempty,max=4000"`
	IsActive       *bool   `json:"isActive"`
}

func (r UpdateRequest) toPatch() Patch {
	return Patch(r)
}

type Response struct {
	ID             int64     `json:"id"`
	Key            string    `json:"key"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar"`
	Intro          string    `json:"intro"`
	WelcomeMessage string    `json:"welcomeMessage"`
	Personality    string    `json:"personality"`
	SystemPrompt   string    `json:"systemPrompt"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

func ToResponse(c *Character) Response {
	return Response{
		ID:             c.ID,
		Key:            c.Key,
		Name:           c.Name,
		Avatar:         c.Avatar,
		Intro:          c.Intro,
		WelcomeMessage: c.WelcomeMessage,
		Personality:    c.Personality,
		SystemPrompt:   c.SystemPrompt,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
}

func ToResponseList(characters []Character) []Response {
	out := make([]Response, 0, len(characters))
	for i := range characters {
		out = append(out, ToResponse(&characters[i]))
	}
	return out
}
