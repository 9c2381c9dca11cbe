// AngelaMos | 2026
// entity.go

package character

import (
	"time"
)

type Character struct {
	ID             int64     `db:"id"`
	Key            string    `db:"key"`
	Name           string    `db:"name"`
	Avatar         string    `db:"avatar"`
	Intro          string    `db:"intro"`
	WelcomeMessage string    `db:"welcome_message"`
	Personality    string    `db:"personality"`
	SystemPrompt   string    `db:"system_prompt"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

// Patch carries a partial update. Nil fields keep their stored value.
type Patch struct {
	Name           *string
	Avatar         *string
	Intro          *string
	WelcomeMessage *string
	Personality    *string
	SystemPrompt   *string
	IsActive       *bool
}
