package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dating-api/internal/models"
)

// Subqueries selecting the ids on either side of a user's like edges. The
// member listing embeds them so both paths agree on what a like means.
const (
	likersQuery = "SELECT l.liker_id FROM likes l WHERE l.likee_id = ?"
	likeesQuery = "SELECT l.likee_id FROM likes l WHERE l.liker_id = ?"
)

type LikeRepository struct {
	q       Querier
	dialect Dialect
}

func (r *LikeRepository) Get(ctx context.Context, likerID, likeeID uuid.UUID) (*models.Like, error) {
	var l models.Like
	err := NewSelectBuilder("likes", "liker_id", "likee_id", "created_at").
		Where("liker_id = ?", likerID).
		Where("likee_id = ?", likeeID).
		QueryRow(ctx, r.q, r.dialect).
		Scan(&l.LikerID, &l.LikeeID, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get like: %w", err)
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func (r *LikeRepository) Create(ctx context.Context, like *models.Like) error {
	like.CreatedAt = dbTime(like.CreatedAt)
	_, err := NewInsertBuilder("likes").
		Set("liker_id", like.LikerID).
		Set("likee_id", like.LikeeID).
		Set("created_at", like.CreatedAt).
		Exec(ctx, r.q, r.dialect)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Likers returns the ids of users who like userID.
func (r *LikeRepository) Likers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, likersQuery, userID)
}

// Likees returns the ids of users liked by userID.
func (r *LikeRepository) Likees(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, likeesQuery, userID)
}

func (r *LikeRepository) ids(ctx context.Context, query string, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query+" ORDER BY l.created_at ASC"), userID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		if id != userID {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}
