package api

import (
	"context"

	"flexflow-api/domain"
)

// Accounts abstracts credential and identity operations for handlers.
type Accounts interface {
	Register(ctx context.Context, email, name, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Resolve(ctx context.Context, id string) (*domain.User, error)
}

// Boards abstracts the board hierarchy for handlers.
type Boards interface {
	CreateBoard(ctx context.Context, callerID string, in domain.BoardCreate) (*domain.Board, error)
	Boards(ctx context.Context, callerID string) ([]domain.Board, error)
	Board(ctx context.Context, callerID, id string) (*domain.Board, error)
	CreateList(ctx context.Context, callerID, boardID string, in domain.ListCreate) (*domain.List, error)
	Lists(ctx context.Context, callerID, boardID string) ([]domain.List, error)
	CreateCard(ctx context.Context, callerID, listID string, in domain.CardCreate) (*domain.Card, error)
	CardsByList(ctx context.Context, callerID, listID string) ([]domain.Card, error)
	CardsByBoard(ctx context.Context, callerID, boardID string) ([]domain.Card, error)
	UpdateCard(ctx context.Context, callerID, id string, upd domain.CardUpdate) (*domain.Card, error)
	DeleteCard(ctx context.Context, callerID, id string) error
	Inbox(ctx context.Context, callerID string) ([]domain.Card, error)
}

// Authenticator is implemented by types able to mint tokens and extract user
// IDs from Authorization headers.
type Authenticator interface {
	CanIssue() bool
	Issue(userID string) (string, error)
	UserIDFromAuthHeader(h string) (string, error)
}
