package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	appErrors "github.com/ucampus/portal-academico-api/pkg/errors"
)

func newAuthService(secret string) *AuthService {
	return NewAuthService(AuthConfig{Secret: secret, Expiration: time.Hour, Issuer: "portal-academico"}, zap.NewNop())
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newAuthService("test-secret")

	token, expiresAt, err := svc.IssueToken("s1", models.RoleStudent, "Ana García")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Ana García", claims.FullName)
	assert.Equal(t, "portal-academico", claims.Issuer)
}

func TestAuthServiceValidateWrongSecret(t *testing.T) {
	issuer := newAuthService("secret-a")
	verifier := newAuthService("secret-b")

	token, _, err := issuer.IssueToken("s1", models.RoleStudent, "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateGarbage(t *testing.T) {
	svc := newAuthService("test-secret")

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "test-secret", Expiration: -time.Hour, Issuer: "portal-academico"}, zap.NewNop())

	token, _, err := svc.IssueToken("s1", models.RoleCoordinator, "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
