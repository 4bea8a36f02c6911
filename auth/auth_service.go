package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/jrsteele09/go-members-gateway/users"
)

const (
	defaultStoreTimeout = 5 * time.Second

	// hashed once per Service so unknown-email logins cost the same as wrong passwords
	dummyPassword = "members-gateway-dummy-password"
)

// Service runs the signup, login and role management flows on top of the user store
// and the session manager.
type Service struct {
	users        users.UserRepo
	sessions     *sessions.Manager
	hasher       *users.Hasher
	validator    *Validator
	storeTimeout time.Duration
	dummyHash    string
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHasher replaces the default bcrypt hasher
func WithHasher(h *users.Hasher) ServiceOption {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithStoreTimeout bounds every user store call
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(userRepo users.UserRepo, sessionManager *sessions.Manager, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] user repo is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewService] session manager is required")
	}

	s := &Service{
		users:        userRepo,
		sessions:     sessionManager,
		hasher:       users.NewHasher(users.DefaultHashCost),
		validator:    NewValidator(),
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range options {
		opt(s)
	}

	dummyHash, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewService] dummy hash")
	}
	s.dummyHash = dummyHash
	return s, nil
}

// Login checks the credentials and, on success, returns the session under a new id
// carrying the user's principal. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (*sessions.Session, error) {
	in, err := s.validator.ValidateLogin(email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, in.Email)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			s.hasher.Verify(in.Password, s.dummyHash)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}

	return s.sessions.SetPrincipal(ctx, sessionID, sessions.PrincipalFromUser(user))
}

// Signup registers a new account and logs it in. The very first account becomes admin.
func (s *Service) Signup(ctx context.Context, sessionID, name, email, password string) (*sessions.Session, error) {
	in, err := s.validator.ValidateSignup(name, email, password)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service Signup]")
	}

	user := &users.User{
		Email:        in.Email,
		DisplayName:  in.Name,
		PasswordHash: hash,
	}

	if err := s.insertUser(ctx, user); err != nil {
		if errors.Is(err, errors.ErrDuplicateKey) {
			return nil, errors.Wrapf(errors.ErrEmailTaken, "user with email %s already exists", in.Email)
		}
		return nil, err
	}

	return s.sessions.SetPrincipal(ctx, sessionID, sessions.PrincipalFromUser(user))
}

// SetRole changes the role of targetEmail. A missing user is reported as changed == false
// rather than an error.
func (s *Service) SetRole(ctx context.Context, targetEmail string, role users.RoleType) (bool, error) {
	if !role.Valid() {
		return false, errors.Wrapf(errors.ErrValidation, "invalid role %q", role)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.users.UpdateRole(ctx, targetEmail, role); err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return false, nil
		}
		return false, errors.Unavailable(err)
	}
	return true, nil
}

// Promote grants targetEmail the admin role; see SetRole
func (s *Service) Promote(ctx context.Context, targetEmail string) (bool, error) {
	return s.SetRole(ctx, targetEmail, users.RoleAdmin)
}

// Demote returns targetEmail to the user role; see SetRole
func (s *Service) Demote(ctx context.Context, targetEmail string) (bool, error) {
	return s.SetRole(ctx, targetEmail, users.RoleUser)
}

// ListUsers returns every account for the admin page
func (s *Service) ListUsers(ctx context.Context) ([]*users.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	list, err := s.users.List(ctx)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return list, nil
}

// CountUsers returns the number of stored accounts
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, errors.Unavailable(err)
	}
	return n, nil
}

func (s *Service) getUser(ctx context.Context, email string) (*users.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, err
		}
		return nil, errors.Unavailable(err)
	}
	return user, nil
}

func (s *Service) insertUser(ctx context.Context, user *users.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, errors.ErrDuplicateKey) {
			return err
		}
		return errors.Unavailable(err)
	}
	return nil
}
