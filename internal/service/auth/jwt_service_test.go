package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestJWTService(secret string, lifetime time.Duration, now func() time.Time) *hmacJWTService {
	return &hmacJWTService{
		signingKey:           []byte(secret),
		tokenLifetime:        lifetime,
		refreshTokenLifetime: lifetime * 24,
		timeFunc:             now,
		clockSkew:            0,
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	svc, err := NewJWTService(DefaultJWTConfig())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	svc := newTestJWTService("test-secret-that-is-long-enough-for-testing", tokenLifetime, func() time.Time {
		return fixedTime
	})
	id := domain.Identity{UserID: 42, Role: domain.RoleAdmin}

	token, err := svc.GenerateToken(context.Background(), id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(tokenLifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, id, claims.Identity())
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	secret := "test-secret-that-is-long-enough-for-testing"
	wrongSecret := "wrong-secret-that-is-long-enough-for-testing"
	id := domain.Identity{UserID: 7, Role: domain.RoleUser}

	issuer := newTestJWTService(secret, tokenLifetime, func() time.Time { return fixedTime })
	token, err := issuer.GenerateToken(context.Background(), id)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), id)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		now     time.Time
		token   string
		wantErr error
	}{
		{"valid token", secret, fixedTime.Add(30 * time.Minute), token, nil},
		{"expired token", secret, fixedTime.Add(2 * tokenLifetime), token, ErrExpiredToken},
		{"wrong secret", wrongSecret, fixedTime, token, ErrInvalidToken},
		{"malformed token", secret, fixedTime, "not.a.token", ErrInvalidToken},
		{"refresh token as access", secret, fixedTime, refresh, ErrWrongTokenType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestJWTService(tc.secret, tokenLifetime, func() time.Time { return tc.now })

			claims, err := svc.ValidateToken(context.Background(), tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, claims.Identity())
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	secret := "test-secret-that-is-long-enough-for-testing"
	id := domain.Identity{UserID: 9, Role: domain.RoleGuest}

	issuer := newTestJWTService(secret, time.Hour, func() time.Time { return fixedTime })
	access, err := issuer.GenerateToken(context.Background(), id)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), id)
	require.NoError(t, err)

	claims, err := issuer.ValidateRefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, fixedTime.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, err = issuer.ValidateRefreshToken(context.Background(), access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = issuer.ValidateRefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	later := newTestJWTService(secret, time.Hour, func() time.Time { return fixedTime.Add(48 * time.Hour) })
	_, err = later.ValidateRefreshToken(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestValidateToken_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	secret := "test-secret-that-is-long-enough-for-testing"
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{
		UserID:    1,
		Role:      "root",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	svc := newTestJWTService(secret, time.Hour, time.Now)
	_, err = svc.ValidateToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RejectsOtherSigningMethods(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwtCustomClaims{
		UserID:    1,
		Role:      string(domain.RoleUser),
		TokenType: TokenTypeAccess,
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	svc := MustCreateTestJWTService()
	_, err = svc.ValidateToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptVerifier(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(string(hash), "correct-horse"))
	assert.ErrorIs(t, v.Compare(string(hash), "wrong-horse"), ErrPasswordMismatch)
	assert.ErrorIs(t, v.Burn("anything"), ErrPasswordMismatch)
}
