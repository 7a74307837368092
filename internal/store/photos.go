package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dating-api/internal/models"
)

var photoColumns = []string{"id", "user_id", "url", "public_id", "description", "date_added", "is_main"}

type PhotoRepository struct {
	q       Querier
	dialect Dialect
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var (
		p        models.Photo
		publicID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.URL, &publicID, &p.Description, &p.DateAdded, &p.IsMain); err != nil {
		return nil, err
	}
	if publicID.Valid {
		p.PublicID = &publicID.String
	}
	p.DateAdded = p.DateAdded.UTC()
	return &p, nil
}

func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	photo.DateAdded = dbTime(photo.DateAdded)

	var publicID any
	if photo.PublicID != nil {
		publicID = *photo.PublicID
	}

	_, err := NewInsertBuilder("photos").
		Set("id", photo.ID).
		Set("user_id", photo.UserID).
		Set("url", photo.URL).
		Set("public_id", publicID).
		Set("description", photo.Description).
		Set("date_added", photo.DateAdded).
		Set("is_main", photo.IsMain).
		Exec(ctx, r.q, r.dialect)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

func (r *PhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	row := NewSelectBuilder("photos", photoColumns...).
		Where("id = ?", id).
		QueryRow(ctx, r.q, r.dialect)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

// ListByUser returns the user's photos oldest first.
func (r *PhotoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Photo, error) {
	rows, err := NewSelectBuilder("photos", photoColumns...).
		Where("user_id = ?", userID).
		OrderBy("date_added ASC", "id ASC").
		Query(ctx, r.q, r.dialect)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func (r *PhotoRepository) GetMain(ctx context.Context, userID uuid.UUID) (*models.Photo, error) {
	row := NewSelectBuilder("photos", photoColumns...).
		Where("user_id = ?", userID).
		Where("is_main = ?", true).
		QueryRow(ctx, r.q, r.dialect)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get main photo: %w", err)
	}
	return p, nil
}

// ClearMain unsets the main flag on every photo of the user.
func (r *PhotoRepository) ClearMain(ctx context.Context, userID uuid.UUID) error {
	_, err := NewUpdateBuilder("photos").
		Set("is_main", false).
		Where("user_id = ?", userID).
		Where("is_main = ?", true).
		Exec(ctx, r.q, r.dialect)
	if err != nil {
		return fmt.Errorf("clear main photo: %w", err)
	}
	return nil
}

func (r *PhotoRepository) MarkMain(ctx context.Context, id uuid.UUID) error {
	res, err := NewUpdateBuilder("photos").
		Set("is_main", true).
		Where("id = ?", id).
		Exec(ctx, r.q, r.dialect)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("mark main photo: %w", err)
	}
	return expectOneRow(res)
}

func (r *PhotoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := NewDeleteBuilder("photos").
		Where("id = ?", id).
		Exec(ctx, r.q, r.dialect)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return expectOneRow(res)
}
