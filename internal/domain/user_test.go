package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser(" Alice@Example.com ", "alice", "supersecret")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())
}

func TestNewUser_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
		password string
		wantErr  error
	}{
		{"empty email", "", "alice", "supersecret", ErrEmptyEmail},
		{"bad email", "not-an-email", "alice", "supersecret", ErrInvalidEmail},
		{"short username", "a@example.com", "al", "supersecret", ErrInvalidUsername},
		{"short password", "a@example.com", "alice", "short", ErrPasswordTooShort},
		{"no password", "a@example.com", "alice", "", ErrEmptyHashedPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.username, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserValidate_HashedOnly(t *testing.T) {
	u := User{
		Email:          "bob@example.com",
		Username:       "bob",
		HashedPassword: "$2a$10$hash",
		Role:           RoleAdmin,
		CreatedAt:      time.Now(),
	}
	assert.NoError(t, u.Validate())
	assert.True(t, u.IsAdmin())

	u.Role = "root"
	assert.ErrorIs(t, u.Validate(), ErrInvalidRole)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrPasswordTooShort))
	assert.True(t, IsValidation(fmt.Errorf("%w: limit must be a non-negative integer", ErrValidation)))
	assert.True(t, IsValidation(errors.Join(errors.New("store"), ErrInvalidPriority)))
	assert.False(t, IsValidation(errors.New("connection refused")))
	assert.False(t, IsValidation(nil))
}
