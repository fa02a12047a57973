package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

// Users covers registration, profile reads, and search. Sessions and login
// belong to the excluded auth layer; this service only ever stores a hash.
type Users struct {
	store store.Store
}

func NewUsers(st store.Store) *Users {
	return &Users{store: st}
}

type CreateUserInput struct {
	Username            string
	FirstName           string
	LastName            string
	Email               string
	PhoneNumber         string
	Password            string
	DefaultPrivacyLevel string
}

// Create registers a user with a zero balance. The username must be unique;
// the store surfaces a duplicate as ErrConflict.
func (s *Users) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	privacy := domain.PrivacyContacts
	if in.DefaultPrivacyLevel != "" {
		var err error
		if privacy, err = domain.ParsePrivacyLevel(in.DefaultPrivacyLevel); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	u := &domain.User{
		ID:                  uuid.NewString(),
		Username:            in.Username,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Email:               in.Email,
		PhoneNumber:         in.PhoneNumber,
		Avatar:              "",
		Balance:             decimal.Zero,
		DefaultPrivacyLevel: privacy,
		PasswordHash:        string(hash),
		CreatedAt:           now,
		ModifiedAt:          now,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserInput carries the fields a user may edit on their own account.
// Balance and the password hash are never patchable through this path.
type UpdateUserInput struct {
	Username            *string
	FirstName           *string
	LastName            *string
	Email               *string
	PhoneNumber         *string
	Avatar              *string
	DefaultPrivacyLevel *string
}

// Update applies a partial edit to the caller's own account. A username
// change collides with an existing name as ErrConflict.
func (s *Users) Update(ctx context.Context, actorID, userID string, in UpdateUserInput) error {
	if actorID != userID {
		return fmt.Errorf("%w: not the account owner", domain.ErrUnauthorized)
	}

	patch := domain.UserPatch{
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Avatar:      in.Avatar,
	}
	if in.Username != nil && *in.Username == "" {
		return fmt.Errorf("%w: username cannot be empty", domain.ErrValidation)
	}
	if in.DefaultPrivacyLevel != nil {
		privacy, err := domain.ParsePrivacyLevel(*in.DefaultPrivacyLevel)
		if err != nil {
			return err
		}
		patch.DefaultPrivacyLevel = &privacy
	}

	return s.store.UpdateUser(ctx, userID, patch)
}

// Get returns the full user record. Account owner only.
func (s *Users) Get(ctx context.Context, actorID, userID string) (*domain.User, error) {
	if actorID != userID {
		return nil, fmt.Errorf("%w: not the account owner", domain.ErrUnauthorized)
	}
	return s.store.UserByID(ctx, userID)
}

// Profile returns the public subset of a user looked up by username.
func (s *Users) Profile(ctx context.Context, username string) (*domain.Profile, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{FirstName: u.FirstName, LastName: u.LastName, Avatar: u.Avatar}, nil
}

// Search matches users by username, name, email, or phone, excluding the
// caller from the results.
func (s *Users) Search(ctx context.Context, actorID, q string) ([]domain.User, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrValidation)
	}
	users, err := s.store.SearchUsers(ctx, q)
	if err != nil {
		return nil, err
	}
	return withoutUser(users, actorID), nil
}

// List returns all users except the caller.
func (s *Users) List(ctx context.Context, actorID string) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return withoutUser(users, actorID), nil
}

func withoutUser(users []domain.User, id string) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
