package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"flexflow-api/domain"
)

type backend interface {
	ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error)
	ListLists(ctx context.Context, boardID string) ([]domain.List, error)
	ListCardsByList(ctx context.Context, listID string) ([]domain.Card, error)
	ListCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error)
	InsertBoard(ctx context.Context, b domain.Board) error
	InsertList(ctx context.Context, l domain.List) error
	InsertCard(ctx context.Context, c domain.Card) error
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	UpdateCard(ctx context.Context, id string, upd domain.CardUpdate, updatedAt time.Time) (*domain.Card, error)
	DeleteCard(ctx context.Context, id string) (int, error)
}

// Cache wraps a Storage instance with Redis-backed caching for the hot list
// reads. Mutations write through to the backing storage and evict any keys
// the change could have staled. Redis failures degrade to the backing store
// rather than failing the request.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client
// and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{base: base, redis: client, ttl: ttl}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error) {
	key := boardsCacheKey(ownerID)
	var boards []domain.Board
	if c.load(ctx, key, &boards) {
		return boards, nil
	}
	boards, err := c.base.ListBoards(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, boards)
	return boards, nil
}

func (c *Cache) ListLists(ctx context.Context, boardID string) ([]domain.List, error) {
	key := listsCacheKey(boardID)
	var lists []domain.List
	if c.load(ctx, key, &lists) {
		return lists, nil
	}
	lists, err := c.base.ListLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, lists)
	return lists, nil
}

func (c *Cache) ListCardsByList(ctx context.Context, listID string) ([]domain.Card, error) {
	key := listCardsCacheKey(listID)
	var cards []domain.Card
	if c.load(ctx, key, &cards) {
		return cards, nil
	}
	cards, err := c.base.ListCardsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, cards)
	return cards, nil
}

func (c *Cache) ListCardsByBoard(ctx context.Context, boardID string) ([]domain.Card, error) {
	key := boardCardsCacheKey(boardID)
	var cards []domain.Card
	if c.load(ctx, key, &cards) {
		return cards, nil
	}
	cards, err := c.base.ListCardsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, cards)
	return cards, nil
}

func (c *Cache) InsertBoard(ctx context.Context, b domain.Board) error {
	if err := c.base.InsertBoard(ctx, b); err != nil {
		return err
	}
	c.evict(ctx, boardsCacheKey(b.OwnerID))
	return nil
}

func (c *Cache) InsertList(ctx context.Context, l domain.List) error {
	if err := c.base.InsertList(ctx, l); err != nil {
		return err
	}
	c.evict(ctx, listsCacheKey(l.BoardID))
	return nil
}

func (c *Cache) InsertCard(ctx context.Context, card domain.Card) error {
	if err := c.base.InsertCard(ctx, card); err != nil {
		return err
	}
	c.evict(ctx, listCardsCacheKey(card.ListID), boardCardsCacheKey(card.BoardID))
	return nil
}

// UpdateCard evicts both the card's previous and current list/board keys:
// a move between lists stales two sets of entries.
func (c *Cache) UpdateCard(ctx context.Context, id string, upd domain.CardUpdate, updatedAt time.Time) (*domain.Card, error) {
	prev, err := c.base.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := c.base.UpdateCard(ctx, id, upd, updatedAt)
	if err != nil || updated == nil {
		return updated, err
	}
	keys := []string{listCardsCacheKey(updated.ListID), boardCardsCacheKey(updated.BoardID)}
	if prev != nil {
		keys = append(keys, listCardsCacheKey(prev.ListID), boardCardsCacheKey(prev.BoardID))
	}
	c.evict(ctx, keys...)
	return updated, nil
}

func (c *Cache) DeleteCard(ctx context.Context, id string) (int, error) {
	prev, err := c.base.GetCard(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := c.base.DeleteCard(ctx, id)
	if err != nil {
		return 0, err
	}
	if n > 0 && prev != nil {
		c.evict(ctx, listCardsCacheKey(prev.ListID), boardCardsCacheKey(prev.BoardID))
	}
	return n, nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func boardsCacheKey(ownerID string) string   { return "boards:" + ownerID }
func listsCacheKey(boardID string) string    { return "lists:" + boardID }
func listCardsCacheKey(listID string) string { return "cards:list:" + listID }
func boardCardsCacheKey(boardID string) string {
	return "cards:board:" + boardID
}
