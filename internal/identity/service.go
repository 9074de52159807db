package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/veris-dev/veris-lrs/internal/auth"
	"github.com/veris-dev/veris-lrs/internal/vault"
	"github.com/veris-dev/veris-lrs/pkg/schema"
)

// Service implements account registration and the two credential
// exchanges. It owns the bcrypt hashing and magic-token sealing; the Store
// behind it only ever sees opaque values.
type Service struct {
	store Store
	key   []byte
	log   *zap.Logger
}

// NewService builds the account service. The secret also keys the
// magic-token vault.
func NewService(store Store, secret string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, key: vault.DeriveKey(secret), log: log}
}

// UserUpdate carries the mutable account fields; nil means unchanged.
type UserUpdate struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	Password    *string `json:"password"`
	Role        *string `json:"role"`
}

// Register creates an account. Only an admin actor may grant the admin
// role; anyone else gets a plain user account regardless of what the
// request asked for.
func (s *Service) Register(ctx context.Context, reg schema.Registration, actorIsAdmin bool) (schema.User, error) {
	if reg.Email == "" || reg.Password == "" {
		return schema.User{}, fmt.Errorf("email and password are required")
	}

	role := ""
	if reg.Role == auth.RoleAdmin && actorIsAdmin {
		role = auth.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return schema.User{}, err
	}

	now := time.Now().UTC()
	u := schema.User{
		ID:          uuid.NewString(),
		Email:       reg.Email,
		DisplayName: reg.DisplayName,
		Role:        role,
		Hash:        string(hash),
		LastActive:  now,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return schema.User{}, err
	}

	s.log.Info("user registered", zap.String("id", u.ID), zap.String("role", role))
	return u, nil
}

// Authenticate verifies a password credential. Failures collapse into
// ErrBadCredentials so the response can not be used to probe for accounts.
func (s *Service) Authenticate(ctx context.Context, creds schema.Credentials) (schema.User, error) {
	u, err := s.store.ByEmail(ctx, creds.Email)
	if err != nil {
		return schema.User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(creds.Password)) != nil {
		return schema.User{}, ErrBadCredentials
	}

	s.touch(ctx, u)
	return u, nil
}

// IssueMagicToken mints a single-use login token for a user. The token is
// an AES-GCM seal over "<userID>:<nonce>"; only the nonce is stored, so a
// leaked user record alone cannot be replayed as a credential.
func (s *Service) IssueMagicToken(ctx context.Context, userID string) (string, error) {
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return "", err
	}

	nonce := uuid.NewString()
	token, err := vault.Seal(u.ID+":"+nonce, s.key)
	if err != nil {
		return "", err
	}

	u.MagicNonce = nonce
	if err := s.store.Update(ctx, u); err != nil {
		return "", err
	}
	return token, nil
}

// AuthenticateMagic redeems a magic token. The stored nonce is cleared on
// success, making each token single-use.
func (s *Service) AuthenticateMagic(ctx context.Context, token string) (schema.User, error) {
	payload, err := vault.Open(token, s.key)
	if err != nil {
		return schema.User{}, ErrBadCredentials
	}
	userID, nonce, ok := strings.Cut(payload, ":")
	if !ok {
		return schema.User{}, ErrBadCredentials
	}

	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return schema.User{}, ErrBadCredentials
	}
	if u.MagicNonce == "" || u.MagicNonce != nonce {
		return schema.User{}, ErrBadCredentials
	}

	u.MagicNonce = ""
	u.LastActive = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		return schema.User{}, err
	}
	return u, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id string) (schema.User, error) {
	return s.store.ByID(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]schema.User, error) {
	return s.store.List(ctx)
}

// Update applies the non-nil fields of upd to an account. Role changes are
// reserved to admin actors.
func (s *Service) Update(ctx context.Context, id string, upd UserUpdate, actorIsAdmin bool) (schema.User, error) {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		return schema.User{}, err
	}

	if upd.Email != nil && *upd.Email != "" {
		u.Email = *upd.Email
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Password != nil && *upd.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return schema.User{}, err
		}
		u.Hash = string(hash)
	}
	if upd.Role != nil && actorIsAdmin {
		u.Role = *upd.Role
	}

	if err := s.store.Update(ctx, u); err != nil {
		return schema.User{}, err
	}
	return u, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) touch(ctx context.Context, u schema.User) {
	u.LastActive = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		s.log.Warn("could not update last-active", zap.String("id", u.ID), zap.Error(err))
	}
}
