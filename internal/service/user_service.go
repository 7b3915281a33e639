package service

import (
	"context"
	"strings"
	"time"

	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// GetMyProfile reads the caller's account. Suspended callers may use it.
type GetMyProfile struct{}

func (GetMyProfile) RequestName() string { return "get_my_profile" }

// SuspendUser opens a suspension window. A nil Until is indefinite.
type SuspendUser struct {
	UserID string     `json:"user_id" validate:"required"`
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason" validate:"max=500"`
}

func (SuspendUser) RequestName() string { return "suspend_user" }

// UnsuspendUser clears a suspension.
type UnsuspendUser struct {
	UserID string `json:"user_id" validate:"required"`
}

func (UnsuspendUser) RequestName() string { return "unsuspend_user" }

// SetPassword sets or changes the local password. CurrentPassword is
// required once a password exists.
type SetPassword struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (SetPassword) RequestName() string { return "set_password" }

// UnlinkGoogle detaches the caller's Google identity.
type UnlinkGoogle struct{}

func (UnlinkGoogle) RequestName() string { return "unlink_google" }

// UserProfile is the outward view of an account.
type UserProfile struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	DisplayName      string      `json:"display_name"`
	IsAdmin          bool        `json:"is_admin"`
	Roles            []string    `json:"roles"`
	Tier             domain.Tier `json:"tier"`
	DailyQuota       int         `json:"daily_quota"`
	HasPassword      bool        `json:"has_password"`
	GoogleLinked     bool        `json:"google_linked"`
	Suspended        bool        `json:"suspended"`
	SuspendedUntil   *time.Time  `json:"suspended_until,omitempty"`
	SuspensionReason *string     `json:"suspension_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// profileOf reports the suspension as it stands at now, not the stored flag.
func profileOf(u *domain.User, now time.Time) UserProfile {
	p := UserProfile{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		IsAdmin:      u.IsAdmin,
		Roles:        append([]string{}, u.Roles...),
		Tier:         u.Tier,
		DailyQuota:   u.DailyQuota,
		HasPassword:  u.HasPassword(),
		GoogleLinked: u.GoogleID != nil,
		Suspended:    u.SuspensionActive(now),
		CreatedAt:    u.CreatedAt,
	}
	if p.Suspended {
		p.SuspendedUntil = u.SuspendedUntil
		p.SuspensionReason = u.SuspensionReason
	}
	return p
}

// UserService manages accounts.
type UserService struct {
	base
	passwords auth.PasswordHasher
}

// NewUserService constructs the service.
func NewUserService(deps Dependencies) *UserService {
	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.BcryptHasher{}
	}
	return &UserService{base: newBase(deps), passwords: passwords}
}

func (s *UserService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[GetMyProfile, UserProfile](s.GetMyProfile), dispatch.WithPolicy(dispatch.Policy[GetMyProfile]{
		Authenticated:  true,
		AllowSuspended: true,
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[SuspendUser, UserProfile](s.SuspendUser), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[UnsuspendUser, UserProfile](s.UnsuspendUser), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[SetPassword, result.Void](s.SetPassword), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[UnlinkGoogle, UserProfile](s.UnlinkGoogle), dispatch.Authenticated())
}

// GetMyProfile returns the caller's profile.
func (s *UserService) GetMyProfile(ctx context.Context, _ GetMyProfile) (result.Result[UserProfile], error) {
	user, err := s.store.Repos().Users.GetByID(ctx, s.actor(ctx).ID)
	if err != nil {
		return failed[UserProfile](err, "user")
	}
	return result.Success(profileOf(user, s.now())), nil
}

// SuspendUser suspends a non-admin account.
func (s *UserService) SuspendUser(ctx context.Context, req SuspendUser) (result.Result[UserProfile], error) {
	reason := optionalString(strings.TrimSpace(req.Reason))
	res, err := s.mutate(ctx, req.UserID, func(u *domain.User) error {
		return u.Suspend(req.Until, reason, s.now())
	})
	if err == nil && res.IsSuccess() {
		s.publish(ctx, s.actor(ctx).ID, events.Event{
			Type:      events.EventUserSuspended,
			SubjectID: req.UserID,
			Payload:   events.UserSuspendedPayload{Until: req.Until, Reason: reason},
		})
	}
	return res, err
}

// UnsuspendUser lifts the suspension whether or not its window is still open.
func (s *UserService) UnsuspendUser(ctx context.Context, req UnsuspendUser) (result.Result[UserProfile], error) {
	return s.mutate(ctx, req.UserID, func(u *domain.User) error {
		u.Unsuspend(s.now())
		return nil
	})
}

// SetPassword stores a bcrypt hash of the new password.
func (s *UserService) SetPassword(ctx context.Context, req SetPassword) (result.Result[result.Void], error) {
	res, err := s.mutate(ctx, s.actor(ctx).ID, func(u *domain.User) error {
		if u.HasPassword() {
			if req.CurrentPassword == "" {
				return &domain.RuleError{Field: "current_password", Message: "current password is required"}
			}
			if s.passwords.Compare(u.PasswordHash, req.CurrentPassword) != nil {
				return &domain.RuleError{Field: "current_password", Message: "current password is incorrect"}
			}
		}
		hash, err := s.passwords.Hash(req.NewPassword)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return result.Result[result.Void]{}, err
	}
	return result.Map(res, func(UserProfile) result.Void { return result.Void{} }), nil
}

// UnlinkGoogle requires a local password so the account keeps a sign-in path.
func (s *UserService) UnlinkGoogle(ctx context.Context, _ UnlinkGoogle) (result.Result[UserProfile], error) {
	return s.mutate(ctx, s.actor(ctx).ID, func(u *domain.User) error {
		return u.UnlinkGoogle(s.now())
	})
}

func (s *UserService) mutate(ctx context.Context, userID string, apply func(*domain.User) error) (result.Result[UserProfile], error) {
	var out UserProfile
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := apply(user); err != nil {
			return err
		}
		if err := tx.Users.Update(ctx, user); err != nil {
			return err
		}
		out = profileOf(user, s.now())
		return nil
	})
	return outcome(out, err, "user")
}
