package users_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/stretchr/testify/require"
)

func newUser(email, name string) *users.User {
	return &users.User{Email: email, DisplayName: name, PasswordHash: "hash-" + email}
}

func TestInMemoryUserRepo_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("first user becomes admin", func(t *testing.T) {
		repo := users.NewInMemoryUserRepo()

		ann := newUser("ann@x.com", "Ann")
		require.NoError(t, repo.Insert(ctx, ann))
		require.Equal(t, users.RoleAdmin, ann.Role)
		require.False(t, ann.DateJoined.IsZero())

		bob := newUser("bob@x.com", "Bob")
		require.NoError(t, repo.Insert(ctx, bob))
		require.Equal(t, users.RoleUser, bob.Role)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, count)
	})

	t.Run("duplicate email rejected without mutation", func(t *testing.T) {
		repo := users.NewInMemoryUserRepo()
		require.NoError(t, repo.Insert(ctx, newUser("ann@x.com", "Ann")))

		err := repo.Insert(ctx, newUser("ann@x.com", "Impostor"))
		require.ErrorIs(t, err, errors.ErrDuplicateKey)

		stored, err := repo.GetByEmail(ctx, "ann@x.com")
		require.NoError(t, err)
		require.Equal(t, "Ann", stored.DisplayName)
		require.Equal(t, users.RoleAdmin, stored.Role)
	})

	t.Run("email is case sensitive", func(t *testing.T) {
		repo := users.NewInMemoryUserRepo()
		require.NoError(t, repo.Insert(ctx, newUser("ann@x.com", "Ann")))
		require.NoError(t, repo.Insert(ctx, newUser("Ann@x.com", "Ann2")))
	})

	t.Run("explicit role is kept", func(t *testing.T) {
		repo := users.NewInMemoryUserRepo()
		u := newUser("ann@x.com", "Ann")
		u.Role = users.RoleUser
		require.NoError(t, repo.Insert(ctx, u))
		require.Equal(t, users.RoleUser, u.Role)
	})
}

func TestInMemoryUserRepo_ConcurrentBootstrap(t *testing.T) {
	ctx := context.Background()
	repo := users.NewInMemoryUserRepo()

	const signups = 50
	var wg sync.WaitGroup
	for i := 0; i < signups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Insert(ctx, newUser(fmt.Sprintf("user%d@x.com", i), "U"))
			// Everyone also races on the same email
			_ = repo.Insert(ctx, newUser("same@x.com", "Same"))
		}(i)
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, signups+1)

	admins := 0
	for _, u := range list {
		if u.IsAdmin() {
			admins++
		}
	}
	require.Equal(t, 1, admins)
}

func TestInMemoryUserRepo_UpdateRole(t *testing.T) {
	ctx := context.Background()
	repo := users.NewInMemoryUserRepo()
	require.NoError(t, repo.Insert(ctx, newUser("ann@x.com", "Ann")))
	require.NoError(t, repo.Insert(ctx, newUser("bob@x.com", "Bob")))

	require.NoError(t, repo.UpdateRole(ctx, "bob@x.com", users.RoleAdmin))
	bob, err := repo.GetByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	require.Equal(t, users.RoleAdmin, bob.Role)

	err = repo.UpdateRole(ctx, "nobody@x.com", users.RoleAdmin)
	require.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestInMemoryUserRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := users.NewInMemoryUserRepo()
	require.NoError(t, repo.Insert(ctx, newUser("ann@x.com", "Ann")))

	u, err := repo.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	u.Role = users.RoleUser

	again, err := repo.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, users.RoleAdmin, again.Role)

	_, err = repo.GetByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestRoleType_Valid(t *testing.T) {
	require.True(t, users.RoleAdmin.Valid())
	require.True(t, users.RoleUser.Valid())
	require.False(t, users.RoleType("super_admin").Valid())
	require.False(t, users.RoleType("").Valid())
}
