package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// UserService provides account operations.
type UserService interface {
	// Register creates an active user with the default role.
	// Returns store.ErrEmailExists or store.ErrUsernameExists on a conflict.
	Register(ctx context.Context, email, username, password string) (*domain.User, error)

	// Authenticate checks an email/password pair. Unknown emails and wrong
	// passwords both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	verifier  auth.PasswordVerifier
	loader    *cache.Loader
	db        *sql.DB
	logger    *slog.Logger
}

// NewUserService creates a new UserService. loader may be nil.
func NewUserService(
	userStore store.UserStore,
	verifier auth.PasswordVerifier,
	loader *cache.Loader,
	db *sql.DB,
	logger *slog.Logger,
) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		verifier:  verifier,
		loader:    loader,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}
}

// Register creates a new user inside a transaction.
func (s *UserServiceImpl) Register(ctx context.Context, email, username, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, username, password)
	if err != nil {
		log.Debug("rejected user registration", "error", err)
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("attempted to register existing user", "email", user.Email)
			return nil, err
		}
		log.Error("failed to save user", "error", err, "email", user.Email)
		return nil, NewUserServiceError("register", "failed to save user", err)
	}

	// The plaintext is only needed for hashing.
	user.Password = ""

	log.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate verifies credentials and returns the matching active user.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = s.verifier.Burn(password)
			log.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to load user for login", "error", err)
		return nil, NewUserServiceError("authenticate", "failed to load user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			log.Error("password comparison failed", "error", err, "user_id", user.ID)
		}
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Info("login for inactive user", "user_id", user.ID)
		return nil, ErrInactiveUser
	}

	return user, nil
}

// GetUser retrieves a user by their ID.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	load := func(ctx context.Context) (*domain.User, error) {
		user, err := s.userStore.GetByID(ctx, userID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return nil, err
			}
			return nil, NewUserServiceError("get", "failed to load user", err)
		}
		return user, nil
	}
	if s.loader == nil {
		return load(ctx)
	}
	user, err := cache.GetOrLoad(ctx, s.loader, cache.UserKey(userID), load)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}
