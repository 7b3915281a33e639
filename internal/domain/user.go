package domain

import (
	"strings"
	"time"
)

// Tier is the subscription classification. It is read here, never computed.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPlus    Tier = "PLUS"
	TierPremium Tier = "PREMIUM"
)

// User is an account holder. Suspension is a time window, not an enum state.
type User struct {
	ID               string
	Email            string
	DisplayName      string
	PasswordHash     string
	GoogleID         *string
	IsAdmin          bool
	Roles            []string
	Tier             Tier
	DailyQuota       int
	IsSuspended      bool
	SuspendedUntil   *time.Time
	SuspensionReason *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int
}

// SuspensionActive interprets the suspension window at read time. A nil
// SuspendedUntil means indefinite.
func (u *User) SuspensionActive(now time.Time) bool {
	if !u.IsSuspended {
		return false
	}
	return u.SuspendedUntil == nil || now.Before(*u.SuspendedUntil)
}

// SuspensionElapsed reports a stored flag whose window has passed.
func (u *User) SuspensionElapsed(now time.Time) bool {
	return u.IsSuspended && u.SuspendedUntil != nil && !now.Before(*u.SuspendedUntil)
}

// Suspend sets the suspension window. Admin accounts cannot be suspended.
func (u *User) Suspend(until *time.Time, reason *string, now time.Time) error {
	if u.IsAdmin {
		return &RuleError{Field: "user_id", Message: "Cannot suspend admin users"}
	}
	if until != nil && !until.After(now) {
		return &RuleError{Field: "until", Message: "suspension end must be in the future"}
	}
	u.IsSuspended = true
	u.SuspendedUntil = until
	u.SuspensionReason = reason
	u.UpdatedAt = now
	return nil
}

// Unsuspend clears the window.
func (u *User) Unsuspend(now time.Time) {
	u.IsSuspended = false
	u.SuspendedUntil = nil
	u.SuspensionReason = nil
	u.UpdatedAt = now
}

// HasPassword reports whether a local password is set.
func (u *User) HasPassword() bool {
	return strings.TrimSpace(u.PasswordHash) != ""
}

// UnlinkGoogle detaches the Google identity. A password must exist first so
// the account keeps a way to sign in.
func (u *User) UnlinkGoogle(now time.Time) error {
	if !u.HasPassword() {
		return &RuleError{Field: "password", Message: "set a password before unlinking Google"}
	}
	if u.GoogleID == nil {
		return &TransitionError{Entity: "user", From: "unlinked", Action: "unlink google", Reason: "google account is not linked"}
	}
	u.GoogleID = nil
	u.UpdatedAt = now
	return nil
}

// HasRole checks the role list; admins implicitly hold "admin".
func (u *User) HasRole(role string) bool {
	if role == "admin" && u.IsAdmin {
		return true
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
