// Package photo manages member photos and keeps exactly one of them marked
// as main whenever a member has any.
package photo

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/cache"
	"github.com/dating-api/internal/models"
)

const (
	ErrAlreadyMain      = Error("this is already the main photo")
	ErrCannotDeleteMain = Error("you cannot delete your main photo")
	ErrNotOwned         = Error("photo does not belong to user")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// AssetStore holds the image bytes outside the database.
type AssetStore interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (models.Asset, error)
	Purge(ctx context.Context, publicID string) error
}

type Service struct {
	store  models.Store
	assets AssetStore
	locks  cache.Locker
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewService(store models.Store, assets AssetStore, locks cache.Locker, log logrus.FieldLogger) *Service {
	return &Service{
		store:  store,
		assets: assets,
		locks:  locks,
		now:    time.Now,
		log:    log,
	}
}

func checkDeletable(photo *models.Photo, userID uuid.UUID) error {
	if photo.UserID != userID {
		return ErrNotOwned
	}
	if photo.IsMain {
		return ErrCannotDeleteMain
	}
	return nil
}

func lockKey(userID uuid.UUID) string {
	return "photos:" + userID.String()
}

func (s *Service) Get(ctx context.Context, photoID uuid.UUID) (*models.Photo, error) {
	return s.store.Photos().GetByID(ctx, photoID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Photo, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Photos().ListByUser(ctx, userID)
}

// Add uploads the image and records it. The photo becomes main when the user
// has no main photo yet. If recording fails the uploaded image is purged.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, upload *models.PhotoUpload) (*models.Photo, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}

	asset, err := s.assets.Upload(ctx, userID, upload.Filename, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ID:          uuid.New(),
		UserID:      userID,
		URL:         asset.URL,
		Description: upload.Description,
		DateAdded:   s.now().UTC(),
	}
	if asset.PublicID != "" {
		photo.PublicID = &asset.PublicID
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID))
	if err != nil {
		s.discard(ctx, asset.PublicID)
		return nil, err
	}
	defer unlock()

	err = s.store.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
		if err := tx.Users().LockForUpdate(ctx, userID); err != nil {
			return err
		}

		_, err := tx.Photos().GetMain(ctx, userID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			photo.IsMain = true
		case err != nil:
			return err
		}

		return tx.Photos().Create(ctx, photo)
	})
	if err != nil {
		s.discard(ctx, asset.PublicID)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"photo_id": photo.ID,
		"is_main":  photo.IsMain,
	}).Info("Photo added")

	return photo, nil
}

// discard purges an asset whose database record was never committed.
func (s *Service) discard(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.assets.Purge(context.WithoutCancel(ctx), publicID); err != nil {
		s.log.WithError(err).WithField("public_id", publicID).Error("Failed to purge orphaned image")
	}
}

// SetMain makes photoID the user's only main photo.
func (s *Service) SetMain(ctx context.Context, userID, photoID uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, lockKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
		if err := tx.Users().LockForUpdate(ctx, userID); err != nil {
			return err
		}

		photo, err := tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return err
		}
		if photo.UserID != userID {
			return ErrNotOwned
		}
		if photo.IsMain {
			return ErrAlreadyMain
		}

		if err := tx.Photos().ClearMain(ctx, userID); err != nil {
			return err
		}
		return tx.Photos().MarkMain(ctx, photoID)
	})
}

// Delete removes a photo that is not the main one. A remotely stored image
// is purged first; the record is only removed once the purge succeeded.
// Ownership and the main flag are checked again under the user's row lock.
func (s *Service) Delete(ctx context.Context, userID, photoID uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, lockKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	photo, err := s.store.Photos().GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if err := checkDeletable(photo, userID); err != nil {
		return err
	}

	reqCtx := ctx
	err = s.store.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, tx models.Store) error {
		if err := tx.Users().LockForUpdate(ctx, userID); err != nil {
			return err
		}

		photo, err := tx.Photos().GetByID(ctx, photoID)
		if err != nil {
			return err
		}
		if err := checkDeletable(photo, userID); err != nil {
			return err
		}

		if photo.PublicID != nil {
			if err := s.assets.Purge(reqCtx, *photo.PublicID); err != nil {
				return err
			}
		}
		return tx.Photos().Delete(ctx, photoID)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"photo_id": photoID,
	}).Info("Photo deleted")
	return nil
}
