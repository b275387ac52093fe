package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// UserStorage defines the persistence methods the user service requires.
// Lookups return nil without an error when no record matches.
type UserStorage interface {
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	InsertUser(ctx context.Context, u User) error
}

// UserService handles registration, login and identity resolution.
type UserService struct {
	st     UserStorage
	hasher PasswordHasher
	events EventPublisher
	now    func() time.Time
}

func NewUserService(st UserStorage, hasher PasswordHasher, events EventPublisher) *UserService {
	if st == nil {
		panic("domain.NewUserService: storage is nil")
	}
	return &UserService{st: st, hasher: hasher, events: events, now: time.Now}
}

// Register creates a new account. A taken email fails with
// ErrInvalidCredentials so registration cannot be used to probe accounts.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError{Reason: "a valid email is required"}
	}
	if name == "" {
		return nil, ValidationError{Reason: "name is required"}
	}
	if password == "" {
		return nil, ValidationError{Reason: "password is required"}
	}

	existing, err := s.st.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.st.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, Event{EntityID: u.ID, EntityType: "user", Type: UserRegistered, UserID: u.ID})
	return &u, nil
}

// Login verifies the credentials and returns the matching user. Unknown email
// and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.st.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	s.publish(ctx, Event{EntityID: u.ID, EntityType: "user", Type: UserLoggedIn, UserID: u.ID})
	return u, nil
}

// Resolve maps a verified token subject to a live user record. A subject
// without a stored record fails closed with ErrUserNotFound even though the
// token itself was valid.
func (s *UserService) Resolve(ctx context.Context, id string) (*User, error) {
	u, err := s.st.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Time = s.now().UnixNano()
	if err := s.events.Publish(ctx, ev); err != nil {
		log.WithFields(log.Fields{"type": ev.Type, "entity": ev.EntityID}).Warnf("publish event: %v", err)
	}
}
