package domain

import "time"

// Priority of a card.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Card belongs to a list and carries a denormalized BoardID that must equal
// its list's board. MirroredTo holds cross-board references; edits are never
// propagated to mirrors.
type Card struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	ListID       string         `json:"list_id"`
	BoardID      string         `json:"board_id"`
	Position     int            `json:"position"`
	AssignedTo   []string       `json:"assigned_to"`
	Labels       []string       `json:"labels"`
	DueDate      *time.Time     `json:"due_date,omitempty"`
	Priority     Priority       `json:"priority"`
	CustomFields map[string]any `json:"custom_fields"`
	MirroredTo   []string       `json:"mirrored_to"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type CardCreate struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ListID       string         `json:"list_id"`
	BoardID      string         `json:"board_id"`
	Position     int            `json:"position"`
	AssignedTo   []string       `json:"assigned_to"`
	Labels       []string       `json:"labels"`
	DueDate      *time.Time     `json:"due_date"`
	Priority     Priority       `json:"priority"`
	CustomFields map[string]any `json:"custom_fields"`
}

// CardUpdate carries a partial update. Nil fields are left untouched; there is
// no clear-to-null semantics in this API. BoardID is derived by the hierarchy
// service when a card moves between lists and cannot be set by callers.
type CardUpdate struct {
	Title        *string         `json:"title,omitempty"`
	Description  *string         `json:"description,omitempty"`
	ListID       *string         `json:"list_id,omitempty"`
	BoardID      *string         `json:"-"`
	Position     *int            `json:"position,omitempty"`
	AssignedTo   *[]string       `json:"assigned_to,omitempty"`
	Labels       *[]string       `json:"labels,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Priority     *Priority       `json:"priority,omitempty"`
	CustomFields *map[string]any `json:"custom_fields,omitempty"`
	MirroredTo   *[]string       `json:"mirrored_to,omitempty"`
}

// Empty reports whether the update would change no field. An empty update is
// still a valid request: it refreshes the card's UpdatedAt timestamp.
func (u CardUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.ListID == nil &&
		u.BoardID == nil && u.Position == nil && u.AssignedTo == nil &&
		u.Labels == nil && u.DueDate == nil && u.Priority == nil &&
		u.CustomFields == nil && u.MirroredTo == nil
}

// Apply merges the update into a copy of the card. UpdatedAt is set separately
// by the caller.
func (u CardUpdate) Apply(c Card) Card {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.ListID != nil {
		c.ListID = *u.ListID
	}
	if u.BoardID != nil {
		c.BoardID = *u.BoardID
	}
	if u.Position != nil {
		c.Position = *u.Position
	}
	if u.AssignedTo != nil {
		c.AssignedTo = *u.AssignedTo
	}
	if u.Labels != nil {
		c.Labels = *u.Labels
	}
	if u.DueDate != nil {
		c.DueDate = u.DueDate
	}
	if u.Priority != nil {
		c.Priority = *u.Priority
	}
	if u.CustomFields != nil {
		c.CustomFields = *u.CustomFields
	}
	if u.MirroredTo != nil {
		c.MirroredTo = *u.MirroredTo
	}
	return c
}
