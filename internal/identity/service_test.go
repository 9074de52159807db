package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veris-dev/veris-lrs/pkg/schema"
)

func newTestService() *Service {
	return NewService(NewMemUsers(), "test-secret", nil)
}

func register(t *testing.T, s *Service, email, password, role string, admin bool) schema.User {
	t.Helper()
	u, err := s.Register(context.Background(), schema.Registration{
		Email:    email,
		Password: password,
		Role:     role,
	}, admin)
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	register(t, s, "alice@example.com", "hunter2", "", false)

	u, err := s.Authenticate(ctx, schema.Credentials{Email: "alice@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Empty(t, u.Role)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	register(t, s, "alice@example.com", "hunter2", "", false)

	_, err := s.Authenticate(ctx, schema.Credentials{Email: "alice@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, ErrBadCredentials))

	_, err = s.Authenticate(ctx, schema.Credentials{Email: "nobody@example.com", Password: "hunter2"})
	assert.True(t, errors.Is(err, ErrBadCredentials))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestService()
	register(t, s, "alice@example.com", "hunter2", "", false)

	_, err := s.Register(context.Background(), schema.Registration{
		Email:    "alice@example.com",
		Password: "other",
	}, false)
	assert.True(t, errors.Is(err, ErrDuplicateEmail))
}

func TestRegisterAdminRoleRequiresAdminActor(t *testing.T) {
	s := newTestService()

	u := register(t, s, "sneaky@example.com", "pw", "admin", false)
	assert.Empty(t, u.Role, "non-admin actor must not mint admin accounts")

	u = register(t, s, "boss@example.com", "pw", "admin", true)
	assert.Equal(t, "admin", u.Role)
}

func TestMagicTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	u := register(t, s, "alice@example.com", "hunter2", "", false)

	token, err := s.IssueMagicToken(ctx, u.ID)
	require.NoError(t, err)

	got, err := s.AuthenticateMagic(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Single use: the same token must not work twice.
	_, err = s.AuthenticateMagic(ctx, token)
	assert.True(t, errors.Is(err, ErrBadCredentials))
}

func TestMagicTokenRejectsTampering(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	u := register(t, s, "alice@example.com", "hunter2", "", false)

	token, err := s.IssueMagicToken(ctx, u.ID)
	require.NoError(t, err)

	_, err = s.AuthenticateMagic(ctx, token[:len(token)-2])
	assert.True(t, errors.Is(err, ErrBadCredentials))

	// A newer token invalidates the previous one.
	second, err := s.IssueMagicToken(ctx, u.ID)
	require.NoError(t, err)
	_, err = s.AuthenticateMagic(ctx, token)
	assert.True(t, errors.Is(err, ErrBadCredentials))
	_, err = s.AuthenticateMagic(ctx, second)
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	u := register(t, s, "alice@example.com", "hunter2", "", false)

	name := "Alice"
	pw := "correct horse"
	role := "admin"
	got, err := s.Update(ctx, u.ID, UserUpdate{DisplayName: &name, Password: &pw, Role: &role}, false)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Empty(t, got.Role, "role change requires an admin actor")

	_, err = s.Authenticate(ctx, schema.Credentials{Email: "alice@example.com", Password: "correct horse"})
	assert.NoError(t, err)

	got, err = s.Update(ctx, u.ID, UserUpdate{Role: &role}, true)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	a := register(t, s, "a@example.com", "pw", "", false)
	register(t, s, "b@example.com", "pw", "", false)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
