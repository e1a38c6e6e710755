package session

import "time"

// Session is the server side record backing an authenticated browser
// session. The Token is the only thing the client ever holds.
type Session struct {
	Token     string    `json:"-" db:"token"`
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	UnionID   string    `json:"union_id,omitempty" db:"union_id"`
	UnionName string    `json:"union_name,omitempty" db:"union_name"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // UTC
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
