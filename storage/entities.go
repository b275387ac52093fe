package storage

import (
	"encoding/json"
	"time"

	"flexflow-api/domain"
)

// Entities use the record id for both PartitionKey and RowKey; relations are
// plain columns queried by filter. Slice and map fields are stored as JSON
// strings because table properties are scalar. Timestamps round-trip through
// RFC 3339 with nanoseconds so they deserialize to the same instant.

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

func keysFor(id string) entityKeys {
	return entityKeys{PartitionKey: id, RowKey: id}
}

type userEntity struct {
	entityKeys
	Email        string `json:"Email"`
	Name         string `json:"Name"`
	PasswordHash string `json:"PasswordHash"`
	CreatedAt    string `json:"CreatedAt"`
}

type boardEntity struct {
	entityKeys
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	OwnerID     string `json:"OwnerID"`
	Members     string `json:"Members,omitempty"`
	Background  string `json:"Background,omitempty"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type listEntity struct {
	entityKeys
	Title     string `json:"Title"`
	BoardID   string `json:"BoardID"`
	Position  int    `json:"Position"`
	CreatedAt string `json:"CreatedAt"`
}

type cardEntity struct {
	entityKeys
	Title        string `json:"Title"`
	Description  string `json:"Description,omitempty"`
	ListID       string `json:"ListID"`
	BoardID      string `json:"BoardID"`
	Position     int    `json:"Position"`
	AssignedTo   string `json:"AssignedTo,omitempty"`
	Labels       string `json:"Labels,omitempty"`
	DueDate      string `json:"DueDate,omitempty"`
	Priority     string `json:"Priority"`
	CustomFields string `json:"CustomFields,omitempty"`
	MirroredTo   string `json:"MirroredTo,omitempty"`
	CreatedAt    string `json:"CreatedAt"`
	UpdatedAt    string `json:"UpdatedAt"`
}

// cardMerge carries a partial card update for a merge-mode entity update.
// Nil fields are omitted from the payload and left untouched by the table
// service.
type cardMerge struct {
	entityKeys
	Title        *string `json:"Title,omitempty"`
	Description  *string `json:"Description,omitempty"`
	ListID       *string `json:"ListID,omitempty"`
	BoardID      *string `json:"BoardID,omitempty"`
	Position     *int    `json:"Position,omitempty"`
	AssignedTo   *string `json:"AssignedTo,omitempty"`
	Labels       *string `json:"Labels,omitempty"`
	DueDate      *string `json:"DueDate,omitempty"`
	Priority     *string `json:"Priority,omitempty"`
	CustomFields *string `json:"CustomFields,omitempty"`
	MirroredTo   *string `json:"MirroredTo,omitempty"`
	UpdatedAt    *string `json:"UpdatedAt,omitempty"`
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeStrings(in []string) (string, error) {
	if in == nil {
		return "", nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeUser(u domain.User) userEntity {
	return userEntity{
		entityKeys:   keysFor(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    encodeTime(u.CreatedAt),
	}
}

func decodeUser(data []byte) (domain.User, error) {
	var ent userEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	created, err := decodeTime(ent.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           ent.RowKey,
		Email:        ent.Email,
		Name:         ent.Name,
		PasswordHash: ent.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func encodeBoard(b domain.Board) (boardEntity, error) {
	members, err := encodeStrings(b.Members)
	if err != nil {
		return boardEntity{}, err
	}
	return boardEntity{
		entityKeys:  keysFor(b.ID),
		Title:       b.Title,
		Description: b.Description,
		OwnerID:     b.OwnerID,
		Members:     members,
		Background:  b.Background,
		CreatedAt:   encodeTime(b.CreatedAt),
		UpdatedAt:   encodeTime(b.UpdatedAt),
	}, nil
}

func decodeBoard(data []byte) (domain.Board, error) {
	var ent boardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Board{}, err
	}
	members, err := decodeStrings(ent.Members)
	if err != nil {
		return domain.Board{}, err
	}
	created, err := decodeTime(ent.CreatedAt)
	if err != nil {
		return domain.Board{}, err
	}
	updated, err := decodeTime(ent.UpdatedAt)
	if err != nil {
		return domain.Board{}, err
	}
	return domain.Board{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		OwnerID:     ent.OwnerID,
		Members:     members,
		Background:  ent.Background,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func encodeList(l domain.List) listEntity {
	return listEntity{
		entityKeys: keysFor(l.ID),
		Title:      l.Title,
		BoardID:    l.BoardID,
		Position:   l.Position,
		CreatedAt:  encodeTime(l.CreatedAt),
	}
}

func decodeList(data []byte) (domain.List, error) {
	var ent listEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.List{}, err
	}
	created, err := decodeTime(ent.CreatedAt)
	if err != nil {
		return domain.List{}, err
	}
	return domain.List{
		ID:        ent.RowKey,
		Title:     ent.Title,
		BoardID:   ent.BoardID,
		Position:  ent.Position,
		CreatedAt: created,
	}, nil
}

func encodeCard(c domain.Card) (cardEntity, error) {
	assigned, err := encodeStrings(c.AssignedTo)
	if err != nil {
		return cardEntity{}, err
	}
	labels, err := encodeStrings(c.Labels)
	if err != nil {
		return cardEntity{}, err
	}
	mirrored, err := encodeStrings(c.MirroredTo)
	if err != nil {
		return cardEntity{}, err
	}
	custom := ""
	if c.CustomFields != nil {
		data, err := json.Marshal(c.CustomFields)
		if err != nil {
			return cardEntity{}, err
		}
		custom = string(data)
	}
	due := ""
	if c.DueDate != nil {
		due = encodeTime(*c.DueDate)
	}
	return cardEntity{
		entityKeys:   keysFor(c.ID),
		Title:        c.Title,
		Description:  c.Description,
		ListID:       c.ListID,
		BoardID:      c.BoardID,
		Position:     c.Position,
		AssignedTo:   assigned,
		Labels:       labels,
		DueDate:      due,
		Priority:     string(c.Priority),
		CustomFields: custom,
		MirroredTo:   mirrored,
		CreatedAt:    encodeTime(c.CreatedAt),
		UpdatedAt:    encodeTime(c.UpdatedAt),
	}, nil
}

func decodeCard(data []byte) (domain.Card, error) {
	var ent cardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Card{}, err
	}
	assigned, err := decodeStrings(ent.AssignedTo)
	if err != nil {
		return domain.Card{}, err
	}
	labels, err := decodeStrings(ent.Labels)
	if err != nil {
		return domain.Card{}, err
	}
	mirrored, err := decodeStrings(ent.MirroredTo)
	if err != nil {
		return domain.Card{}, err
	}
	custom := map[string]any{}
	if ent.CustomFields != "" {
		if err := json.Unmarshal([]byte(ent.CustomFields), &custom); err != nil {
			return domain.Card{}, err
		}
	}
	var due *time.Time
	if ent.DueDate != "" {
		t, err := decodeTime(ent.DueDate)
		if err != nil {
			return domain.Card{}, err
		}
		due = &t
	}
	created, err := decodeTime(ent.CreatedAt)
	if err != nil {
		return domain.Card{}, err
	}
	updated, err := decodeTime(ent.UpdatedAt)
	if err != nil {
		return domain.Card{}, err
	}
	return domain.Card{
		ID:           ent.RowKey,
		Title:        ent.Title,
		Description:  ent.Description,
		ListID:       ent.ListID,
		BoardID:      ent.BoardID,
		Position:     ent.Position,
		AssignedTo:   assigned,
		Labels:       labels,
		DueDate:      due,
		Priority:     domain.Priority(ent.Priority),
		CustomFields: custom,
		MirroredTo:   mirrored,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func encodeCardMerge(id string, upd domain.CardUpdate, updatedAt time.Time) (cardMerge, error) {
	merge := cardMerge{entityKeys: keysFor(id)}
	merge.Title = upd.Title
	merge.Description = upd.Description
	merge.ListID = upd.ListID
	merge.BoardID = upd.BoardID
	merge.Position = upd.Position
	if upd.AssignedTo != nil {
		enc, err := encodeStrings(*upd.AssignedTo)
		if err != nil {
			return cardMerge{}, err
		}
		merge.AssignedTo = &enc
	}
	if upd.Labels != nil {
		enc, err := encodeStrings(*upd.Labels)
		if err != nil {
			return cardMerge{}, err
		}
		merge.Labels = &enc
	}
	if upd.MirroredTo != nil {
		enc, err := encodeStrings(*upd.MirroredTo)
		if err != nil {
			return cardMerge{}, err
		}
		merge.MirroredTo = &enc
	}
	if upd.DueDate != nil {
		enc := encodeTime(*upd.DueDate)
		merge.DueDate = &enc
	}
	if upd.Priority != nil {
		enc := string(*upd.Priority)
		merge.Priority = &enc
	}
	if upd.CustomFields != nil {
		data, err := json.Marshal(*upd.CustomFields)
		if err != nil {
			return cardMerge{}, err
		}
		enc := string(data)
		merge.CustomFields = &enc
	}
	enc := encodeTime(updatedAt)
	merge.UpdatedAt = &enc
	return merge, nil
}
