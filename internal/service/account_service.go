package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// DefaultDailyQuota is granted to new free-tier accounts.
const DefaultDailyQuota = 50

// RegisterAccount creates a password account.
type RegisterAccount struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	DisplayName string `json:"display_name" validate:"required,max=80"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

func (RegisterAccount) RequestName() string { return "register_account" }

// Login exchanges credentials for an access token.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (Login) RequestName() string { return "login" }

// AccessGrant is the token issued on register or login.
type AccessGrant struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserProfile `json:"user"`
}

// AccountService coordinates registration and login flows.
type AccountService struct {
	base
	passwords auth.PasswordHasher
	tokens    *auth.TokenManager
}

// NewAccountService builds the service.
func NewAccountService(deps Dependencies) *AccountService {
	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.BcryptHasher{}
	}
	return &AccountService{base: newBase(deps), passwords: passwords, tokens: deps.Tokens}
}

func (s *AccountService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[RegisterAccount, AccessGrant](s.RegisterAccount), dispatch.Anonymous())
	dispatch.Register(reg, dispatch.HandlerFunc[Login, AccessGrant](s.Login), dispatch.Anonymous())
}

// RegisterAccount creates a free-tier account and signs the caller in.
func (s *AccountService) RegisterAccount(ctx context.Context, req RegisterAccount) (result.Result[AccessGrant], error) {
	email := normalizeEmail(req.Email)
	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return result.Result[AccessGrant]{}, err
	}

	now := s.now()
	user := &domain.User{
		ID:           s.newID(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Tier:         domain.TierFree,
		DailyQuota:   DefaultDailyQuota,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Users.GetByEmail(ctx, email); err == nil {
			return reject(result.StatusConflict, "email already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.Users.Create(ctx, user)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent sign-up won the unique index.
		return result.Conflict[AccessGrant]("email already registered"), nil
	}
	if err != nil {
		return failed[AccessGrant](err, "user")
	}
	return s.grant(user)
}

// Login verifies the password. Unknown emails and wrong passwords fail alike.
func (s *AccountService) Login(ctx context.Context, req Login) (result.Result[AccessGrant], error) {
	user, err := s.store.Repos().Users.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return result.Unauthenticated[AccessGrant]("invalid credentials"), nil
	}
	if err != nil {
		return result.Result[AccessGrant]{}, err
	}
	if !user.HasPassword() || s.passwords.Compare(user.PasswordHash, req.Password) != nil {
		return result.Unauthenticated[AccessGrant]("invalid credentials"), nil
	}
	return s.grant(user)
}

func (s *AccountService) grant(user *domain.User) (result.Result[AccessGrant], error) {
	if s.tokens == nil {
		return result.Internal[AccessGrant]("token issuing is not configured"), nil
	}
	token, expires, err := s.tokens.GenerateToken(user.ID, user.Email, auth.PrincipalFor(user, s.clock).Roles)
	if err != nil {
		return result.Result[AccessGrant]{}, err
	}
	return result.Success(AccessGrant{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		User:        profileOf(user, s.now()),
	}), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
