package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
)

var _ UserRepo = (*InMemoryUserRepo)(nil)

// InMemoryUserRepo keeps users in process memory. It is used in development and tests.
type InMemoryUserRepo struct {
	users   map[string]*User // email -> user
	lock    sync.RWMutex
	nowTime func() time.Time
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		users:   make(map[string]*User),
		nowTime: time.Now,
	}
}

func (ur *InMemoryUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[email]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	// Copy so callers cannot mutate stored state
	u := *user
	return &u, nil
}

func (ur *InMemoryUserRepo) Insert(_ context.Context, user *User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[user.Email]; ok {
		return errors.ErrDuplicateKey
	}
	if user.Role == "" {
		user.Role = RoleUser
		if len(ur.users) == 0 {
			user.Role = RoleAdmin
		}
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = ur.nowTime()
	}
	u := *user
	ur.users[user.Email] = &u
	return nil
}

func (ur *InMemoryUserRepo) Count(_ context.Context) (int, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users), nil
}

func (ur *InMemoryUserRepo) UpdateRole(_ context.Context, email string, role RoleType) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[email]
	if !ok {
		return errors.ErrUserNotFound
	}
	user.Role = role
	return nil
}

func (ur *InMemoryUserRepo) List(_ context.Context) ([]*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*User, 0, len(ur.users))
	for _, v := range ur.users {
		u := *v
		userList = append(userList, &u)
	}

	sort.Slice(userList, func(i, j int) bool {
		if userList[i].DateJoined.Equal(userList[j].DateJoined) {
			return userList[i].Email < userList[j].Email
		}
		return userList[i].DateJoined.Before(userList[j].DateJoined)
	})
	return userList, nil
}
