package models

import "time"

// Game is a catalog entry.
type Game struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	Price     float64   `json:"price"`
	Rating    float64   `json:"rating"`
	Visits    int64     `json:"visits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameUpdate holds the mutable catalog fields for a partial update.
// Nil fields are left unchanged.
type GameUpdate struct {
	Title    *string  `json:"title,omitempty"`
	Platform *string  `json:"platform,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Visits   *int64   `json:"visits,omitempty"`
}
