package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultBoardBackground = "#e0f7fa"

// HierarchyStorage defines the persistence methods the hierarchy service
// requires. Single-record lookups return nil without an error when no record
// matches; UpdateCard returns the merged card or nil when the id is unknown;
// DeleteCard returns the number of removed records.
type HierarchyStorage interface {
	InsertBoard(ctx context.Context, b Board) error
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)

	InsertList(ctx context.Context, l List) error
	GetList(ctx context.Context, id string) (*List, error)
	ListLists(ctx context.Context, boardID string) ([]List, error)

	InsertCard(ctx context.Context, c Card) error
	GetCard(ctx context.Context, id string) (*Card, error)
	ListCardsByList(ctx context.Context, listID string) ([]Card, error)
	ListCardsByBoard(ctx context.Context, boardID string) ([]Card, error)
	UpdateCard(ctx context.Context, id string, upd CardUpdate, updatedAt time.Time) (*Card, error)
	DeleteCard(ctx context.Context, id string) (int, error)
}

// HierarchyService enforces board -> list -> card ownership and ordering
// invariants. With strict mode on (the default) it validates cross-references
// eagerly and applies per-resource ownership checks; with it off it preserves
// the historical denormalized trust model where callers supply references
// unverified.
type HierarchyService struct {
	st     HierarchyStorage
	events EventPublisher
	strict bool
	now    func() time.Time
}

func NewHierarchyService(st HierarchyStorage, events EventPublisher, strict bool) *HierarchyService {
	if st == nil {
		panic("domain.NewHierarchyService: storage is nil")
	}
	return &HierarchyService{st: st, events: events, strict: strict, now: time.Now}
}

// CreateBoard assigns ownership from the resolved caller; any owner supplied
// in the payload is ignored.
func (s *HierarchyService) CreateBoard(ctx context.Context, callerID string, in BoardCreate) (*Board, error) {
	if in.Title == "" {
		return nil, ValidationError{Reason: "title is required"}
	}
	background := in.Background
	if background == "" {
		background = defaultBoardBackground
	}
	now := s.now().UTC()
	b := Board{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     callerID,
		Members:     []string{},
		Background:  background,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.st.InsertBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, callerID, Event{EntityID: b.ID, EntityType: "board", Type: BoardCreated})
	return &b, nil
}

// Boards returns the boards owned by the caller. Membership does not widen
// this listing.
func (s *HierarchyService) Boards(ctx context.Context, callerID string) ([]Board, error) {
	boards, err := s.st.ListBoards(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if boards == nil {
		boards = []Board{}
	}
	return boards, nil
}

// Board fetches a single board. In strict mode callers without read access get
// ErrNotFound so the API does not leak which ids exist.
func (s *HierarchyService) Board(ctx context.Context, callerID, id string) (*Board, error) {
	b, err := s.st.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if s.strict && !canRead(b, callerID) {
		return nil, ErrNotFound
	}
	return b, nil
}

// CreateList creates a list under boardID. The path board always wins over a
// board embedded in the payload.
func (s *HierarchyService) CreateList(ctx context.Context, callerID, boardID string, in ListCreate) (*List, error) {
	if in.Title == "" {
		return nil, ValidationError{Reason: "title is required"}
	}
	if s.strict {
		if _, err := s.boardForWrite(ctx, callerID, boardID); err != nil {
			return nil, err
		}
	}
	l := List{
		ID:        uuid.NewString(),
		Title:     in.Title,
		BoardID:   boardID,
		Position:  in.Position,
		CreatedAt: s.now().UTC(),
	}
	if err := s.st.InsertList(ctx, l); err != nil {
		return nil, err
	}
	s.publish(ctx, callerID, Event{EntityID: l.ID, EntityType: "list", Type: ListCreated})
	return &l, nil
}

// Lists returns a board's lists in sibling order. An unknown board yields an
// empty slice, not an error, so "empty" and "missing parent" collapse into the
// same observable result.
func (s *HierarchyService) Lists(ctx context.Context, callerID, boardID string) ([]List, error) {
	if s.strict {
		b, err := s.st.GetBoard(ctx, boardID)
		if err != nil {
			return nil, err
		}
		if b != nil && !canRead(b, callerID) {
			return nil, ErrNotFound
		}
	}
	lists, err := s.st.ListLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []List{}
	}
	sortLists(lists)
	return lists, nil
}

// CreateCard creates a card under listID. The path list always overwrites any
// list embedded in the payload. In strict mode the board reference is derived
// from the list and a contradicting caller-supplied board is rejected; with
// strict mode off the caller's board reference is trusted as-is.
func (s *HierarchyService) CreateCard(ctx context.Context, callerID, listID string, in CardCreate) (*Card, error) {
	if in.Title == "" {
		return nil, ValidationError{Reason: "title is required"}
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, ValidationError{Reason: "priority must be low, medium or high"}
	}

	boardID := in.BoardID
	if s.strict {
		l, err := s.st.GetList(ctx, listID)
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, ErrNotFound
		}
		if _, err := s.boardForWrite(ctx, callerID, l.BoardID); err != nil {
			return nil, err
		}
		if in.BoardID != "" && in.BoardID != l.BoardID {
			return nil, ValidationError{Reason: "board_id does not match the list's board"}
		}
		boardID = l.BoardID
	}

	now := s.now().UTC()
	c := Card{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		ListID:       listID,
		BoardID:      boardID,
		Position:     in.Position,
		AssignedTo:   emptyIfNil(in.AssignedTo),
		Labels:       emptyIfNil(in.Labels),
		DueDate:      in.DueDate,
		Priority:     priority,
		CustomFields: in.CustomFields,
		MirroredTo:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.CustomFields == nil {
		c.CustomFields = map[string]any{}
	}
	if err := s.st.InsertCard(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, callerID, Event{EntityID: c.ID, EntityType: "card", Type: CardCreated})
	return &c, nil
}

// CardsByList returns a list's cards in sibling order, empty for unknown
// parents.
func (s *HierarchyService) CardsByList(ctx context.Context, callerID, listID string) ([]Card, error) {
	if s.strict {
		l, err := s.st.GetList(ctx, listID)
		if err != nil {
			return nil, err
		}
		if l != nil {
			b, err := s.st.GetBoard(ctx, l.BoardID)
			if err != nil {
				return nil, err
			}
			if b != nil && !canRead(b, callerID) {
				return nil, ErrNotFound
			}
		}
	}
	cards, err := s.st.ListCardsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []Card{}
	}
	sortCards(cards)
	return cards, nil
}

// CardsByBoard returns every card on a board across all of its lists.
func (s *HierarchyService) CardsByBoard(ctx context.Context, callerID, boardID string) ([]Card, error) {
	if s.strict {
		b, err := s.st.GetBoard(ctx, boardID)
		if err != nil {
			return nil, err
		}
		if b != nil && !canRead(b, callerID) {
			return nil, ErrNotFound
		}
	}
	cards, err := s.st.ListCardsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []Card{}
	}
	sortCards(cards)
	return cards, nil
}

// UpdateCard applies a partial update. UpdatedAt is always refreshed, even
// when the update carries no fields. Moving a card to another list re-derives
// its denormalized board reference in strict mode so the card can never point
// at a different board than its list.
func (s *HierarchyService) UpdateCard(ctx context.Context, callerID, id string, upd CardUpdate) (*Card, error) {
	if upd.Priority != nil && !upd.Priority.Valid() {
		return nil, ValidationError{Reason: "priority must be low, medium or high"}
	}
	if s.strict {
		cur, err := s.st.GetCard(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, ErrNotFound
		}
		if _, err := s.boardForWrite(ctx, callerID, cur.BoardID); err != nil {
			return nil, err
		}
		if upd.ListID != nil && *upd.ListID != cur.ListID {
			target, err := s.st.GetList(ctx, *upd.ListID)
			if err != nil {
				return nil, err
			}
			if target == nil {
				return nil, ValidationError{Reason: "target list does not exist"}
			}
			if target.BoardID != cur.BoardID {
				if _, err := s.boardForWrite(ctx, callerID, target.BoardID); err != nil {
					return nil, err
				}
			}
			upd.BoardID = &target.BoardID
		}
	}
	updated, err := s.st.UpdateCard(ctx, id, upd, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.publish(ctx, callerID, Event{EntityID: id, EntityType: "card", Type: CardUpdated})
	return updated, nil
}

// DeleteCard removes a card. Deleting an unknown id fails with ErrNotFound,
// and so does a repeat delete of the same id.
func (s *HierarchyService) DeleteCard(ctx context.Context, callerID, id string) error {
	if s.strict {
		cur, err := s.st.GetCard(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrNotFound
		}
		if _, err := s.boardForWrite(ctx, callerID, cur.BoardID); err != nil {
			return err
		}
	}
	n, err := s.st.DeleteCard(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.publish(ctx, callerID, Event{EntityID: id, EntityType: "card", Type: CardDeleted})
	return nil
}

// Inbox aggregates every card across the caller's owned boards.
func (s *HierarchyService) Inbox(ctx context.Context, callerID string) ([]Card, error) {
	boards, err := s.st.ListBoards(ctx, callerID)
	if err != nil {
		return nil, err
	}
	cards := []Card{}
	for _, b := range boards {
		batch, err := s.st.ListCardsByBoard(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		cards = append(cards, batch...)
	}
	sortCards(cards)
	return cards, nil
}

// boardForWrite fetches a board and requires the caller to own it. Missing
// boards and foreign boards both fail with ErrNotFound: orphaned references
// fail closed rather than open.
func (s *HierarchyService) boardForWrite(ctx context.Context, callerID, boardID string) (*Board, error) {
	b, err := s.st.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b == nil || b.OwnerID != callerID {
		return nil, ErrNotFound
	}
	return b, nil
}

func canRead(b *Board, userID string) bool {
	if b.OwnerID == userID {
		return true
	}
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Siblings order by position; ties break on the record id so the order is
// stable across reads.
func sortLists(lists []List) {
	sort.SliceStable(lists, func(i, j int) bool {
		if lists[i].Position != lists[j].Position {
			return lists[i].Position < lists[j].Position
		}
		return lists[i].ID < lists[j].ID
	})
}

func sortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].ID < cards[j].ID
	})
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func (s *HierarchyService) publish(ctx context.Context, callerID string, ev Event) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.UserID = callerID
	ev.Time = s.now().UnixNano()
	if err := s.events.Publish(ctx, ev); err != nil {
		log.WithFields(log.Fields{"type": ev.Type, "entity": ev.EntityID}).Warnf("publish event: %v", err)
	}
}
