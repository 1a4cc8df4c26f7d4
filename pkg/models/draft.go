package models

import "time"

// Draft is a workflow kept locally until it is pushed to the API.
type Draft struct {
	ID        string       `json:"id"         validate:"required,uuid"`
	Name      string       `json:"name"       validate:"required"`
	Workflow  WorkflowJSON `json:"workflow"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Token is a named bearer token saved for later CLI calls.
type Token struct {
	Name      string     `json:"name"                 validate:"required"`
	Token     string     `json:"token"                validate:"required"`
	Address   string     `json:"address,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token has an expiry before now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
