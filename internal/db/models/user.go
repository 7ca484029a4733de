package models

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"` // admin, user
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Phrase is a saved caption phrase with its translation.
type Phrase struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	Text           string    `json:"text"`
	Translation    string    `json:"translation"`
	SourceURL      string    `json:"source_url"`
	SourcePlatform string    `json:"source_platform"` // youtube, netflix, web
	Context        string    `json:"context"`
	CreatedAt      time.Time `json:"created_at"`
}
