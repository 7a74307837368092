package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dating-api/internal/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type seed struct {
	username   string
	gender     string
	dob        time.Time
	created    time.Time
	lastActive time.Time
}

func seedUser(t *testing.T, s *Store, in seed) *models.User {
	t.Helper()
	if in.gender == "" {
		in.gender = "female"
	}
	if in.dob.IsZero() {
		in.dob = time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if in.created.IsZero() {
		in.created = testNow.Add(-time.Hour)
	}
	if in.lastActive.IsZero() {
		in.lastActive = in.created
	}

	u := &models.User{
		Username:     in.username,
		PasswordHash: "hash",
		PasswordSalt: "salt",
		Gender:       in.gender,
		DateOfBirth:  in.dob,
		KnownAs:      in.username,
		CreatedAt:    in.created,
		LastActive:   in.lastActive,
		City:         "Lisbon",
		Country:      "Portugal",
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func usernames(users []models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}

// runStoreSuite exercises the repositories against a freshly migrated,
// empty store returned by newStore.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) *Store) {
	ctx := context.Background()

	t.Run("UserCreateAndGet", func(t *testing.T) {
		s := newStore(t)
		u := seedUser(t, s, seed{username: "Alice"})

		got, err := s.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC), got.DateOfBirth)
		assert.True(t, got.CreatedAt.Equal(u.CreatedAt))
		assert.Empty(t, got.PhotoURL)

		byName, err := s.Users().GetByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)

		exists, err := s.Users().Exists(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = s.Users().Exists(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.Users().GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UserDuplicateUsername", func(t *testing.T) {
		s := newStore(t)
		seedUser(t, s, seed{username: "alice"})

		err := s.Users().Create(ctx, &models.User{Username: "ALICE", DateOfBirth: testNow})
		assert.ErrorIs(t, err, models.ErrDuplicate)
	})

	t.Run("UserUpdateAndTouch", func(t *testing.T) {
		s := newStore(t)
		u := seedUser(t, s, seed{username: "alice"})

		u.Introduction = "hello"
		u.City = "Porto"
		require.NoError(t, s.Users().Update(ctx, u))

		at := testNow.Add(time.Minute)
		require.NoError(t, s.Users().Touch(ctx, u.ID, at))

		got, err := s.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Introduction)
		assert.Equal(t, "Porto", got.City)
		assert.True(t, got.LastActive.Equal(at))

		assert.ErrorIs(t, s.Users().Touch(ctx, uuid.New(), at), models.ErrNotFound)
		assert.ErrorIs(t, s.Users().Update(ctx, &models.User{ID: uuid.New()}), models.ErrNotFound)
	})

	t.Run("LockForUpdate", func(t *testing.T) {
		s := newStore(t)
		u := seedUser(t, s, seed{username: "alice"})

		err := s.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
			return tx.Users().LockForUpdate(ctx, u.ID)
		})
		require.NoError(t, err)

		err = s.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
			return tx.Users().LockForUpdate(ctx, uuid.New())
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("PhotoLifecycle", func(t *testing.T) {
		s := newStore(t)
		u := seedUser(t, s, seed{username: "alice"})
		publicID := "users/a/b.jpg"

		first := &models.Photo{UserID: u.ID, URL: "http://cdn/1.jpg", PublicID: &publicID, DateAdded: testNow, IsMain: true}
		second := &models.Photo{UserID: u.ID, URL: "http://cdn/2.jpg", DateAdded: testNow.Add(time.Second)}
		require.NoError(t, s.Photos().Create(ctx, first))
		require.NoError(t, s.Photos().Create(ctx, second))

		main, err := s.Photos().GetMain(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, main.ID)
		require.NotNil(t, main.PublicID)
		assert.Equal(t, publicID, *main.PublicID)

		photos, err := s.Photos().ListByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, photos, 2)
		assert.Equal(t, first.ID, photos[0].ID)
		assert.Nil(t, photos[1].PublicID)

		got, err := s.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "http://cdn/1.jpg", got.PhotoURL)

		require.NoError(t, s.Photos().ClearMain(ctx, u.ID))
		require.NoError(t, s.Photos().MarkMain(ctx, second.ID))

		main, err = s.Photos().GetMain(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, main.ID)

		require.NoError(t, s.Photos().Delete(ctx, first.ID))
		_, err = s.Photos().GetByID(ctx, first.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, s.Photos().Delete(ctx, first.ID), models.ErrNotFound)
	})

	t.Run("PhotoSecondMainRejected", func(t *testing.T) {
		s := newStore(t)
		u := seedUser(t, s, seed{username: "alice"})

		require.NoError(t, s.Photos().Create(ctx, &models.Photo{UserID: u.ID, URL: "a", DateAdded: testNow, IsMain: true}))
		err := s.Photos().Create(ctx, &models.Photo{UserID: u.ID, URL: "b", DateAdded: testNow, IsMain: true})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		_, err = s.Photos().GetMain(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Likes", func(t *testing.T) {
		s := newStore(t)
		alice := seedUser(t, s, seed{username: "alice"})
		bob := seedUser(t, s, seed{username: "bob", gender: "male"})
		carol := seedUser(t, s, seed{username: "carol"})

		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: alice.ID, LikeeID: bob.ID, CreatedAt: testNow}))
		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: carol.ID, LikeeID: bob.ID, CreatedAt: testNow.Add(time.Second)}))
		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: bob.ID, LikeeID: alice.ID, CreatedAt: testNow}))

		err := s.Likes().Create(ctx, &models.Like{LikerID: alice.ID, LikeeID: bob.ID, CreatedAt: testNow})
		assert.ErrorIs(t, err, models.ErrDuplicate)

		like, err := s.Likes().Get(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, like.LikeeID)

		_, err = s.Likes().Get(ctx, alice.ID, carol.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		likers, err := s.Likes().Likers(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{alice.ID, carol.ID}, likers)

		likees, err := s.Likes().Likees(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob.ID}, likees)

		likees, err = s.Likes().Likees(ctx, carol.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob.ID}, likees)

		likers, err = s.Likes().Likers(ctx, carol.ID)
		require.NoError(t, err)
		assert.Empty(t, likers)
	})

	t.Run("WithTxRollsBack", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(ctx context.Context, tx models.Store) error {
			if err := tx.Users().Create(ctx, &models.User{Username: "ghost", DateOfBirth: testNow}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		exists, err := s.Users().Exists(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("AgeBandOnLeapDay", func(t *testing.T) {
		s := newStore(t)
		leapDay := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return leapDay }

		me := seedUser(t, s, seed{username: "me", gender: "male"})
		for i, in := range []seed{
			{username: "kid", dob: time.Date(2006, 3, 1, 0, 0, 0, 0, time.UTC)},
			{username: "adult", dob: time.Date(2006, 2, 28, 0, 0, 0, 0, time.UTC)},
			{username: "thirty", dob: time.Date(1993, 3, 1, 0, 0, 0, 0, time.UTC)},
			{username: "old", dob: time.Date(1993, 2, 28, 0, 0, 0, 0, time.UTC)},
		} {
			in.lastActive = leapDay.Add(-time.Duration(i+1) * time.Minute)
			seedUser(t, s, in)
		}

		p := models.NewUserParams(me.ID)
		p.Gender = "female"
		p.MinAge = 18
		p.MaxAge = 30
		p.Normalize(models.DefaultPageSize, models.MaxPageSize)

		page, err := s.Users().List(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []string{"adult", "thirty"}, usernames(page.Items))
		for _, u := range page.Items {
			age := models.Age(u.DateOfBirth, leapDay)
			assert.True(t, age >= 18 && age <= 30, "%s is %d", u.Username, age)
		}
	})

	t.Run("ListFilters", func(t *testing.T) {
		s := newStore(t)
		s.now = func() time.Time { return testNow }

		me := seedUser(t, s, seed{username: "me", gender: "male"})
		ann := seedUser(t, s, seed{username: "ann", dob: time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC), lastActive: testNow.Add(-1 * time.Minute), created: testNow.Add(-3 * time.Hour)})
		bea := seedUser(t, s, seed{username: "bea", dob: time.Date(2000, 6, 16, 0, 0, 0, 0, time.UTC), lastActive: testNow.Add(-2 * time.Minute), created: testNow.Add(-1 * time.Hour)})
		cat := seedUser(t, s, seed{username: "cat", dob: time.Date(1993, 6, 16, 0, 0, 0, 0, time.UTC), lastActive: testNow.Add(-3 * time.Minute), created: testNow.Add(-2 * time.Hour)})
		seedUser(t, s, seed{username: "dee", dob: time.Date(1993, 6, 15, 0, 0, 0, 0, time.UTC), lastActive: testNow.Add(-4 * time.Minute), created: testNow.Add(-4 * time.Hour)})
		seedUser(t, s, seed{username: "ed", gender: "male", lastActive: testNow.Add(-5 * time.Minute)})

		require.NoError(t, s.Photos().Create(ctx, &models.Photo{UserID: ann.ID, URL: "http://cdn/ann.jpg", DateAdded: testNow, IsMain: true}))
		require.NoError(t, s.Photos().Create(ctx, &models.Photo{UserID: ann.ID, URL: "http://cdn/ann2.jpg", DateAdded: testNow}))

		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: ann.ID, LikeeID: me.ID, CreatedAt: testNow}))
		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: bea.ID, LikeeID: me.ID, CreatedAt: testNow}))
		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: me.ID, LikeeID: bea.ID, CreatedAt: testNow}))
		require.NoError(t, s.Likes().Create(ctx, &models.Like{LikerID: me.ID, LikeeID: cat.ID, CreatedAt: testNow}))

		list := func(t *testing.T, mutate func(p *models.UserParams)) *models.PagedResult[models.User] {
			t.Helper()
			p := models.NewUserParams(me.ID)
			mutate(&p)
			p.Normalize(models.DefaultPageSize, models.MaxPageSize)
			page, err := s.Users().List(ctx, p)
			require.NoError(t, err)
			return page
		}

		t.Run("GenderAndDefaultOrder", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) { p.Gender = "female" })
			assert.Equal(t, []string{"ann", "bea", "cat", "dee"}, usernames(page.Items))
			assert.Equal(t, 4, page.TotalCount)
			assert.Equal(t, "http://cdn/ann.jpg", page.Items[0].PhotoURL)
			assert.Empty(t, page.Items[1].PhotoURL)
		})

		t.Run("AnyGenderExcludesRequester", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) { p.Gender = models.GenderAny })
			assert.Equal(t, []string{"ann", "bea", "cat", "dee", "ed"}, usernames(page.Items))
			assert.NotContains(t, usernames(page.Items), "me")
		})

		t.Run("OrderByCreated", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = "female"
				p.OrderBy = models.OrderByCreated
			})
			assert.Equal(t, []string{"bea", "cat", "ann", "dee"}, usernames(page.Items))
		})

		t.Run("AgeBandInclusive", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = "female"
				p.MinAge = 24
				p.MaxAge = 30
			})
			assert.Equal(t, []string{"ann", "cat"}, usernames(page.Items))
			assert.Equal(t, 2, page.TotalCount)
		})

		t.Run("Likers", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = models.GenderAny
				p.Likers = true
			})
			assert.Equal(t, []string{"ann", "bea"}, usernames(page.Items))
		})

		t.Run("Likees", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = models.GenderAny
				p.Likees = true
			})
			assert.Equal(t, []string{"bea", "cat"}, usernames(page.Items))
		})

		t.Run("LikersAndLikeesIntersect", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = models.GenderAny
				p.Likers = true
				p.Likees = true
			})
			assert.Equal(t, []string{"bea"}, usernames(page.Items))
		})

		t.Run("Pagination", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) {
				p.Gender = models.GenderAny
				p.PageSize = 2
				p.PageNumber = 3
			})
			assert.Equal(t, []string{"ed"}, usernames(page.Items))
			assert.Equal(t, 5, page.TotalCount)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 3, page.PageNumber)

			page = list(t, func(p *models.UserParams) {
				p.Gender = models.GenderAny
				p.PageSize = 2
				p.PageNumber = 9
			})
			assert.Empty(t, page.Items)
			assert.Equal(t, 5, page.TotalCount)

			seen := map[string]int{}
			for n := 1; n <= 3; n++ {
				page := list(t, func(p *models.UserParams) {
					p.Gender = models.GenderAny
					p.PageSize = 2
					p.PageNumber = n
				})
				for _, name := range usernames(page.Items) {
					seen[name]++
				}
			}
			assert.Len(t, seen, 5)
			for name, count := range seen {
				assert.Equal(t, 1, count, name)
			}
		})

		t.Run("NoMatches", func(t *testing.T) {
			page := list(t, func(p *models.UserParams) { p.Gender = "nonbinary" })
			assert.Empty(t, page.Items)
			assert.Equal(t, 0, page.TotalCount)
			assert.Equal(t, 0, page.TotalPages)
		})
	})
}
