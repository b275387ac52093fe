package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"flexflow-api/domain"
)

// Storage persists users, boards, lists and cards in Azure Table storage, one
// table per collection. Every operation touches a single entity; no
// multi-entity transactions are used or assumed.
type Storage struct {
	users  *aztables.Client
	boards *aztables.Client
	lists  *aztables.Client
	cards  *aztables.Client
}

// New creates a Storage instance from the given connection string and table
// names.
func New(connStr, usersTable, boardsTable, listsTable, cardsTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		users:  svc.NewClient(usersTable),
		boards: svc.NewClient(boardsTable),
		lists:  svc.NewClient(listsTable),
		cards:  svc.NewClient(cardsTable),
	}, nil
}

// GetUser retrieves a user record, nil when absent.
func (s *Storage) GetUser(ctx context.Context, id string) (*domain.User, error) {
	data, err := getEntity(ctx, s.users, id)
	if err != nil || data == nil {
		return nil, err
	}
	u, err := decodeUser(data)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail looks up a user by the unique email column.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	filter := "Email eq '" + escapeFilterValue(email) + "'"
	pager := s.users.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			u, err := decodeUser(e)
			if err != nil {
				return nil, err
			}
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Storage) InsertUser(ctx context.Context, u domain.User) error {
	payload, err := json.Marshal(encodeUser(u))
	if err != nil {
		return err
	}
	_, err = s.users.AddEntity(ctx, payload, nil)
	return err
}

func (s *Storage) InsertBoard(ctx context.Context, b domain.Board) error {
	ent, err := encodeBoard(b)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.boards.AddEntity(ctx, payload, nil)
	return err
}

func (s *Storage) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	data, err := getEntity(ctx, s.boards, id)
	if err != nil || data == nil {
		return nil, err
	}
	b, err := decodeBoard(data)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBoards returns all boards owned by the given user.
func (s *Storage) ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error) {
	filter := "OwnerID eq '" + escapeFilterValue(ownerID) + "'"
	pager := s.boards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			b, err := decodeBoard(e)
			if err != nil {
				return nil, err
			}
			boards = append(boards, b)
		}
	}
	return boards, nil
}

func (s *Storage) InsertList(ctx context.Context, l domain.List) error {
	payload, err := json.Marshal(encodeList(l))
	if err != nil {
		return err
	}
	_, err = s.lists.AddEntity(ctx, payload, nil)
	return err
}

func (s *Storage) GetList(ctx context.Context, id string) (*domain.List, error) {
	data, err := getEntity(ctx, s.lists, id)
	if err != nil || data == nil {
		return nil, err
	}
	l, err := decodeList(data)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Storage) ListLists(ctx context.Context, boardID string) ([]domain.List, error) {
	filter := "BoardID eq '" + escapeFilterValue(boardID) + "'"
	pager := s.lists.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	lists := []domain.List{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			l, err := decodeList(e)
			if err != nil {
				return nil, err
			}
			lists = append(lists, l)
		}
	}
	return lists, nil
}

func (s *Storage) InsertCard(ctx context.Context, c domain.Card) error {
	ent, err := encodeCard(c)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.cards.AddEntity(ctx, payload, nil)
	return err
}

func (s *Storage) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	data, err := getEntity(ctx, s.cards, id)
	if err != nil || data == nil {
		return nil, err
	}
	c, err := decodeCard(data)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Storage) ListCardsByList(ctx context.Context, listID string) ([]domain.Card, error) {
	return s.listCards(ctx, "ListID eq '"+escapeFilterValue(listID)+"'")
}

func (s *Storage) ListCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error) {
	return s.listCards(ctx, "BoardID eq '"+escapeFilterValue(boardID)+"'")
}

func (s *Storage) listCards(ctx context.Context, filter string) ([]domain.Card, error) {
	pager := s.cards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			c, err := decodeCard(e)
			if err != nil {
				return nil, err
			}
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// UpdateCard merges the partial update into the stored entity and returns the
// merged card, or nil when the id is unknown. Only fields carried by the
// update are written; the table service leaves the rest untouched.
func (s *Storage) UpdateCard(ctx context.Context, id string, upd domain.CardUpdate, updatedAt time.Time) (*domain.Card, error) {
	cur, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}
	merge, err := encodeCardMerge(id, upd, updatedAt)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(merge)
	if err != nil {
		return nil, err
	}
	et := azcore.ETagAny
	if _, err := s.cards.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge}); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	updated := upd.Apply(*cur)
	updated.UpdatedAt = updatedAt
	return &updated, nil
}

// DeleteCard removes a card and reports how many entities were deleted (one
// or zero).
func (s *Storage) DeleteCard(ctx context.Context, id string) (int, error) {
	if _, err := s.cards.DeleteEntity(ctx, id, id, nil); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return 1, nil
}

func getEntity(ctx context.Context, table *aztables.Client, id string) ([]byte, error) {
	ent, err := table.GetEntity(ctx, id, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ent.Value, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// escapeFilterValue doubles single quotes per the OData filter grammar so ids
// and emails cannot break out of the quoted literal.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
