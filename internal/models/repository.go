package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = Error("record not found")
	ErrDuplicate = Error("record already exists")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *User) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	// LockForUpdate serialises concurrent writers on the user's rows for
	// the rest of the enclosing transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params UserParams) (*PagedResult[User], error)
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*Photo, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Photo, error)
	GetMain(ctx context.Context, userID uuid.UUID) (*Photo, error)
	ClearMain(ctx context.Context, userID uuid.UUID) error
	MarkMain(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LikeRepository interface {
	Get(ctx context.Context, likerID, likeeID uuid.UUID) (*Like, error)
	Create(ctx context.Context, like *Like) error
	Likers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Likees(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Store groups the repositories. Inside WithTx, the Store passed to fn is
// bound to the transaction; fn returning an error rolls everything back.
type Store interface {
	Users() UserRepository
	Photos() PhotoRepository
	Likes() LikeRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
