// Package users serves member profiles, the member listing and likes.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/models"
)

const (
	ErrAlreadyLiked = Error("you already like this user")
	ErrSelfLike     = Error("you cannot like yourself")
	ErrForbidden    = Error("cannot modify another user")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

type Service struct {
	store       models.Store
	defaultSize int
	maxSize     int
	now         func() time.Time
	log         logrus.FieldLogger
}

func NewService(store models.Store, defaultSize, maxSize int, log logrus.FieldLogger) *Service {
	if defaultSize <= 0 {
		defaultSize = models.DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = models.MaxPageSize
	}
	return &Service{
		store:       store,
		defaultSize: defaultSize,
		maxSize:     maxSize,
		now:         time.Now,
		log:         log,
	}
}

// List returns one page of other members. Without an explicit gender the
// listing shows members of the opposite gender to the requester; "any"
// lists everyone.
func (s *Service) List(ctx context.Context, params models.UserParams) (*models.PagedResult[models.User], error) {
	params.Normalize(s.defaultSize, s.maxSize)

	if strings.TrimSpace(params.Gender) == "" {
		requester, err := s.store.Users().GetByID(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		params.Gender = oppositeGender(requester.Gender)
	}

	return s.store.Users().List(ctx, params)
}

func oppositeGender(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "female"
	case "female":
		return "male"
	default:
		return models.GenderAny
	}
}

// Get returns the user with all photos.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Photos, err = s.store.Photos().ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a profile edit. Only the profile owner may edit it.
func (s *Service) Update(ctx context.Context, callerID, id uuid.UUID, req *models.UserForUpdate) error {
	if callerID != id {
		return ErrForbidden
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
		if err := tx.Users().LockForUpdate(ctx, id); err != nil {
			return err
		}
		user, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}

		models.ApplyUserUpdate(user, req)
		return tx.Users().Update(ctx, user)
	})
}

// Like records that likerID likes likeeID.
func (s *Service) Like(ctx context.Context, likerID, likeeID uuid.UUID) error {
	if likerID == likeeID {
		return ErrSelfLike
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
		if _, err := tx.Users().GetByID(ctx, likeeID); err != nil {
			return err
		}

		_, err := tx.Likes().Get(ctx, likerID, likeeID)
		if err == nil {
			return ErrAlreadyLiked
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		return tx.Likes().Create(ctx, &models.Like{
			LikerID:   likerID,
			LikeeID:   likeeID,
			CreatedAt: s.now().UTC(),
		})
	})
	if errors.Is(err, models.ErrDuplicate) {
		return ErrAlreadyLiked
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"liker_id": likerID,
		"likee_id": likeeID,
	}).Debug("User liked")
	return nil
}

// Touch records activity by the user.
func (s *Service) Touch(ctx context.Context, id uuid.UUID) error {
	return s.store.Users().Touch(ctx, id, s.now())
}
