package storage

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"flexflow-api/domain"
)

func TestCardEntityRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	card := domain.Card{
		ID:           "c1",
		Title:        "Ship release",
		Description:  "cut the tag",
		ListID:       "l1",
		BoardID:      "b1",
		Position:     -7,
		AssignedTo:   []string{"u1", "u2"},
		Labels:       []string{"release"},
		DueDate:      &due,
		Priority:     domain.PriorityHigh,
		CustomFields: map[string]any{"points": float64(5), "squad": "infra"},
		MirroredTo:   []string{"b9"},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 600000007, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	}

	ent, err := encodeCard(card)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ent.PartitionKey != "c1" || ent.RowKey != "c1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}

	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeCard(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, card) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, card)
	}
	// Nanosecond precision must survive the string encoding.
	if !got.DueDate.Equal(due) || !got.CreatedAt.Equal(card.CreatedAt) {
		t.Fatalf("timestamps drifted: %v / %v", got.DueDate, got.CreatedAt)
	}
}

func TestCardEntityMinimalRoundTrip(t *testing.T) {
	card := domain.Card{
		ID:           "c2",
		Title:        "Bare",
		ListID:       "l1",
		BoardID:      "b1",
		AssignedTo:   []string{},
		Labels:       []string{},
		Priority:     domain.PriorityMedium,
		CustomFields: map[string]any{},
		MirroredTo:   []string{},
		CreatedAt:    time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	ent, err := encodeCard(card)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeCard(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected nil due date, got %v", got.DueDate)
	}
	if got.AssignedTo == nil || got.Labels == nil || got.MirroredTo == nil || got.CustomFields == nil {
		t.Fatalf("expected empty collections after decode: %#v", got)
	}
}

func TestBoardEntityRoundTrip(t *testing.T) {
	board := domain.Board{
		ID:          "b1",
		Title:       "Main",
		Description: "the one board",
		OwnerID:     "u1",
		Members:     []string{"u2", "u3"},
		Background:  "#ffffff",
		CreatedAt:   time.Date(2026, 2, 1, 10, 0, 0, 123456789, time.UTC),
		UpdatedAt:   time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}

	ent, err := encodeBoard(board)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeBoard(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, board) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, board)
	}
}

func TestBoardEntityEmptyMembersDecodeToEmptySlice(t *testing.T) {
	board := domain.Board{
		ID:        "b2",
		Title:     "Lonely",
		OwnerID:   "u1",
		Members:   nil,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	ent, err := encodeBoard(board)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeBoard(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Members == nil || len(got.Members) != 0 {
		t.Fatalf("expected empty members slice, got %#v", got.Members)
	}
}

func TestUserEntityRoundTrip(t *testing.T) {
	user := domain.User{
		ID:           "u1",
		Email:        "a@b.c",
		Name:         "A",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Date(2026, 3, 1, 12, 30, 0, 42, time.UTC),
	}
	payload, err := json.Marshal(encodeUser(user))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeUser(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, user) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, user)
	}
}

func TestListEntityRoundTrip(t *testing.T) {
	list := domain.List{
		ID:        "l1",
		Title:     "Todo",
		BoardID:   "b1",
		Position:  -3,
		CreatedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(encodeList(list))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeList(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, list) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, list)
	}
}

func TestEncodeCardMergeOmitsAbsentFields(t *testing.T) {
	title := "Renamed"
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	merge, err := encodeCardMerge("c1", domain.CardUpdate{Title: &title}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload, err := json.Marshal(merge)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["Title"] != "Renamed" {
		t.Fatalf("expected title in payload, got %v", fields["Title"])
	}
	// UpdatedAt is always present even for an otherwise empty update.
	if fields["UpdatedAt"] == nil {
		t.Fatal("expected UpdatedAt in payload")
	}
	for _, absent := range []string{"Description", "ListID", "BoardID", "Position", "Labels", "Priority"} {
		if _, ok := fields[absent]; ok {
			t.Fatalf("field %s must be omitted from a merge without it", absent)
		}
	}
}

func TestEncodeCardMergeCollections(t *testing.T) {
	labels := []string{"a", "b"}
	custom := map[string]any{"k": "v"}
	pri := domain.PriorityLow
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	merge, err := encodeCardMerge("c1", domain.CardUpdate{Labels: &labels, CustomFields: &custom, Priority: &pri}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if merge.Labels == nil || *merge.Labels != `["a","b"]` {
		t.Fatalf("unexpected labels column: %v", merge.Labels)
	}
	if merge.CustomFields == nil || *merge.CustomFields != `{"k":"v"}` {
		t.Fatalf("unexpected custom fields column: %v", merge.CustomFields)
	}
	if merge.Priority == nil || *merge.Priority != "low" {
		t.Fatalf("unexpected priority column: %v", merge.Priority)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	if got := escapeFilterValue("it's"); got != "it''s" {
		t.Fatalf("unexpected escape: %q", got)
	}
	if got := escapeFilterValue("plain"); got != "plain" {
		t.Fatalf("unexpected escape: %q", got)
	}
}
