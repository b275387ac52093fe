package domain

import (
	"context"
	"sync"
	"time"
)

// fakeStore is an in-memory implementation of UserStorage and HierarchyStorage
// for service tests. Mutations copy values so tests cannot alias stored state.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]User
	boards map[string]Board
	lists  map[string]List
	cards  map[string]Card

	err error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[string]User{},
		boards: map[string]Board{},
		lists:  map[string]List{},
		cards:  map[string]Card{},
	}
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertUser(ctx context.Context, u User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) InsertBoard(ctx context.Context, b Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.boards[b.ID] = b
	return nil
}

func (f *fakeStore) GetBoard(ctx context.Context, id string) (*Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.boards[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []Board
	for _, b := range f.boards {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertList(ctx context.Context, l List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.lists[l.ID] = l
	return nil
}

func (f *fakeStore) GetList(ctx context.Context, id string) (*List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.lists[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeStore) ListLists(ctx context.Context, boardID string) ([]List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []List
	for _, l := range f.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertCard(ctx context.Context, c Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cards[c.ID] = c
	return nil
}

func (f *fakeStore) GetCard(ctx context.Context, id string) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) ListCardsByList(ctx context.Context, listID string) ([]Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []Card
	for _, c := range f.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCardsByBoard(ctx context.Context, boardID string) ([]Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []Card
	for _, c := range f.cards {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCard(ctx context.Context, id string, upd CardUpdate, updatedAt time.Time) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cur, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	merged := upd.Apply(cur)
	merged.UpdatedAt = updatedAt
	f.cards[id] = merged
	return &merged, nil
}

func (f *fakeStore) DeleteCard(ctx context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.cards[id]; !ok {
		return 0, nil
	}
	delete(f.cards, id)
	return 1, nil
}

// capturePublisher records every published event.
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
