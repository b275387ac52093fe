package domain

import "time"

// Board is the root of the hierarchy. Ownership is exclusive to OwnerID;
// membership grants read access only.
type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Members     []string  `json:"members"`
	Background  string    `json:"background,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoardCreate is the caller-supplied part of a new board. The owner always
// comes from the resolved identity, never from the payload.
type BoardCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Background  string `json:"background"`
}

// List is an ordered column inside a board. Position is a free-form integer:
// duplicates and negatives are accepted and never re-normalized.
type List struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	BoardID   string    `json:"board_id"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type ListCreate struct {
	Title    string `json:"title"`
	BoardID  string `json:"board_id"`
	Position int    `json:"position"`
}
