package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dating-api/internal/models"
)

var userColumns = []string{
	"u.id", "u.username", "u.password_hash", "u.password_salt", "u.gender",
	"u.date_of_birth", "u.known_as", "u.created_at", "u.last_active",
	"u.introduction", "u.looking_for", "u.interests", "u.city", "u.country",
	"p.url",
}

type UserRepository struct {
	store *Store
}

// selectUsers joins each user with its main photo, if any.
func selectUsers() *SelectBuilder {
	return NewSelectBuilder("users u", userColumns...).
		Join("LEFT JOIN", "photos p", "p.user_id = u.id AND p.is_main = ?", true)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		photoURL sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.PasswordSalt, &u.Gender,
		&u.DateOfBirth, &u.KnownAs, &u.CreatedAt, &u.LastActive,
		&u.Introduction, &u.LookingFor, &u.Interests, &u.City, &u.Country,
		&photoURL,
	)
	if err != nil {
		return nil, err
	}

	u.DateOfBirth = dbDate(u.DateOfBirth)
	u.CreatedAt = u.CreatedAt.UTC()
	u.LastActive = u.LastActive.UTC()
	u.PhotoURL = photoURL.String
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := dbTime(r.store.now())
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastActive.IsZero() {
		user.LastActive = user.CreatedAt
	}
	user.CreatedAt = dbTime(user.CreatedAt)
	user.LastActive = dbTime(user.LastActive)
	user.Username = models.NormalizeUsername(user.Username)
	user.DateOfBirth = dbDate(user.DateOfBirth)

	_, err := NewInsertBuilder("users").
		Set("id", user.ID).
		Set("username", user.Username).
		Set("password_hash", user.PasswordHash).
		Set("password_salt", user.PasswordSalt).
		Set("gender", user.Gender).
		Set("date_of_birth", user.DateOfBirth).
		Set("known_as", user.KnownAs).
		Set("created_at", user.CreatedAt).
		Set("last_active", user.LastActive).
		Set("introduction", user.Introduction).
		Set("looking_for", user.LookingFor).
		Set("interests", user.Interests).
		Set("city", user.City).
		Set("country", user.Country).
		Exec(ctx, r.store.q, r.store.dialect)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := selectUsers().Where("u.id = ?", id).QueryRow(ctx, r.store.q, r.store.dialect)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := selectUsers().
		Where("u.username = ?", models.NormalizeUsername(username)).
		QueryRow(ctx, r.store.q, r.store.dialect)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := NewSelectBuilder("users").
		Where("username = ?", models.NormalizeUsername(username)).
		Count(ctx, r.store.q, r.store.dialect)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}

// Update writes the mutable profile columns.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	res, err := NewUpdateBuilder("users").
		Set("gender", user.Gender).
		Set("known_as", user.KnownAs).
		Set("introduction", user.Introduction).
		Set("looking_for", user.LookingFor).
		Set("interests", user.Interests).
		Set("city", user.City).
		Set("country", user.Country).
		Where("id = ?", user.ID).
		Exec(ctx, r.store.q, r.store.dialect)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOneRow(res)
}

func (r *UserRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := NewUpdateBuilder("users").
		Set("last_active", dbTime(at)).
		Where("id = ?", id).
		Exec(ctx, r.store.q, r.store.dialect)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return expectOneRow(res)
}

func (r *UserRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := NewSelectBuilder("users", "id").
		Where("id = ?", id).
		Suffix(r.store.dialect.forUpdate()).
		QueryRow(ctx, r.store.q, r.store.dialect).
		Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// List returns one page of members visible to params.UserID. The count and
// the page are read in the same transaction.
func (r *UserRepository) List(ctx context.Context, params models.UserParams) (*models.PagedResult[models.User], error) {
	if params.PageNumber < 1 {
		params.PageNumber = 1
	}
	if params.PageSize < 1 {
		params.PageSize = models.DefaultPageSize
	}

	q := r.filter(params)

	var (
		total int
		users []models.User
	)
	err := r.store.withTx(ctx, r.store.dialect.readTxOptions(), func(ctx context.Context, tx models.Store) error {
		ts := tx.(*Store)

		var err error
		total, err = q.Count(ctx, ts.q, ts.dialect)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if total == 0 || params.Offset() >= total {
			return nil
		}

		rows, err := q.Limit(params.PageSize).Offset(params.Offset()).Query(ctx, ts.q, ts.dialect)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return models.NewPagedResult(users, total, params.PageNumber, params.PageSize), nil
}

func (r *UserRepository) filter(params models.UserParams) *SelectBuilder {
	q := selectUsers().Where("u.id <> ?", params.UserID)

	if gender := strings.ToLower(strings.TrimSpace(params.Gender)); gender != "" && gender != models.GenderAny {
		q.Where("u.gender = ?", gender)
	}

	// Both flags together keep only mutual likes.
	if params.Likers {
		q.Where("u.id IN ("+likersQuery+")", params.UserID)
	}
	if params.Likees {
		q.Where("u.id IN ("+likeesQuery+")", params.UserID)
	}

	if params.HasAgeFilter() {
		today := dbDate(r.store.now())
		oldest := yearsBefore(today, params.MaxAge+1)
		youngest := yearsBefore(today, params.MinAge)
		q.Where("u.date_of_birth > ?", oldest).Where("u.date_of_birth <= ?", youngest)
	}

	if params.OrderBy == models.OrderByCreated {
		q.OrderBy("u.created_at DESC")
	} else {
		q.OrderBy("u.last_active DESC")
	}
	return q.OrderBy("u.id ASC")
}

// yearsBefore steps back whole years, pinning Feb 29 to Feb 28 so that the
// bounds agree with models.Age.
func yearsBefore(day time.Time, years int) time.Time {
	year := day.Year() - years
	d := day.Day()
	if last := time.Date(year, day.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day(); d > last {
		d = last
	}
	return time.Date(year, day.Month(), d, 0, 0, 0, 0, time.UTC)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
