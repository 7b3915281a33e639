package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/result"
)

func (f *fixture) user(id string) *domain.User {
	f.t.Helper()
	u, err := f.store.Repos().Users.GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return u
}

func TestGetMyProfileReadsTierAndQuota(t *testing.T) {
	f := newFixture(t)

	p := requireOK(t, send[GetMyProfile, UserProfile](t, f.as(ownerID), f.d, GetMyProfile{}))
	assert.Equal(t, domain.TierPlus, p.Tier)
	assert.Equal(t, 200, p.DailyQuota)
	assert.False(t, p.Suspended)
	assert.False(t, p.HasPassword)
}

func TestSuspendAdminIsRejected(t *testing.T) {
	f := newFixture(t)
	before := f.user(adminID)
	commits := f.store.Commits()

	res := send[SuspendUser, UserProfile](t, f.as(adminID), f.d, SuspendUser{UserID: adminID, Reason: "oops"})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, "Cannot suspend admin users", res.Message())
	assert.Equal(t, commits, f.store.Commits())
	assert.Equal(t, before, f.user(adminID))
	assert.Empty(t, f.emitted(events.EventUserSuspended))
}

func TestSuspendRejectsPastEnd(t *testing.T) {
	f := newFixture(t)
	past := t0.Add(-time.Minute)

	res := send[SuspendUser, UserProfile](t, f.as(adminID), f.d, SuspendUser{UserID: ownerID, Until: &past})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, "until", res.Problem().Fields[0].Field)
}

func TestSuspensionWindowIsReadAtRequestTime(t *testing.T) {
	f := newFixture(t)
	until := t0.Add(time.Hour)

	p := requireOK(t, send[SuspendUser, UserProfile](t, f.as(adminID), f.d, SuspendUser{UserID: ownerID, Until: &until, Reason: "spam"}))
	assert.True(t, p.Suspended)
	suspended := f.emitted(events.EventUserSuspended)
	require.Len(t, suspended, 1)
	assert.Equal(t, ownerID, suspended[0].SubjectID)

	res := send[CreateTicket, domain.Ticket](t, f.as(ownerID), f.d, CreateTicket{Subject: "s", Description: "d"})
	assert.Equal(t, result.StatusForbidden, res.Status())
	assert.Equal(t, "account is suspended", res.Message())

	profile := requireOK(t, send[GetMyProfile, UserProfile](t, f.as(ownerID), f.d, GetMyProfile{}))
	assert.True(t, profile.Suspended)
	require.NotNil(t, profile.SuspensionReason)
	assert.Equal(t, "spam", *profile.SuspensionReason)

	// The stored flag is still set, but the window has passed.
	f.clock.Advance(2 * time.Hour)
	assert.True(t, f.user(ownerID).IsSuspended)
	requireOK(t, send[CreateTicket, domain.Ticket](t, f.as(ownerID), f.d, CreateTicket{Subject: "s", Description: "d"}))
	profile = requireOK(t, send[GetMyProfile, UserProfile](t, f.as(ownerID), f.d, GetMyProfile{}))
	assert.False(t, profile.Suspended)
	assert.Nil(t, profile.SuspensionReason)
}

func TestIndefiniteSuspensionAndUnsuspend(t *testing.T) {
	f := newFixture(t)
	requireOK(t, send[SuspendUser, UserProfile](t, f.as(adminID), f.d, SuspendUser{UserID: ownerID}))

	f.clock.Advance(24 * 365 * time.Hour)
	res := send[CreateTicket, domain.Ticket](t, f.as(ownerID), f.d, CreateTicket{Subject: "s", Description: "d"})
	assert.Equal(t, result.StatusForbidden, res.Status())

	p := requireOK(t, send[UnsuspendUser, UserProfile](t, f.as(adminID), f.d, UnsuspendUser{UserID: ownerID}))
	assert.False(t, p.Suspended)
	u := f.user(ownerID)
	assert.False(t, u.IsSuspended)
	assert.Nil(t, u.SuspendedUntil)
}

func TestSuspendUserRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	res := send[SuspendUser, UserProfile](t, f.as(otherID), f.d, SuspendUser{UserID: ownerID})
	assert.Equal(t, result.StatusForbidden, res.Status())

	res = send[SuspendUser, UserProfile](t, f.as(adminID), f.d, SuspendUser{UserID: "u-ghost"})
	assert.Equal(t, result.StatusNotFound, res.Status())
	assert.Equal(t, "user not found", res.Message())
}

func TestUnlinkGoogleRequiresPassword(t *testing.T) {
	f := newFixture(t)
	google := "g-123"
	f.seedUser(&domain.User{ID: "u-google", Email: "g@example.com", GoogleID: &google})
	commits := f.store.Commits()

	res := send[UnlinkGoogle, UserProfile](t, f.as("u-google"), f.d, UnlinkGoogle{})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, []result.FieldError{{Field: "password", Message: "set a password before unlinking Google"}}, res.Problem().Fields)
	assert.Equal(t, commits, f.store.Commits())
	assert.NotNil(t, f.user("u-google").GoogleID)

	requireOK(t, send[SetPassword, result.Void](t, f.as("u-google"), f.d, SetPassword{NewPassword: "s3cret-pass"}))
	p := requireOK(t, send[UnlinkGoogle, UserProfile](t, f.as("u-google"), f.d, UnlinkGoogle{}))
	assert.False(t, p.GoogleLinked)
	assert.True(t, p.HasPassword)

	res = send[UnlinkGoogle, UserProfile](t, f.as("u-google"), f.d, UnlinkGoogle{})
	assert.Equal(t, result.StatusConflict, res.Status())
}

func TestSetPasswordChecksCurrentPassword(t *testing.T) {
	f := newFixture(t)
	requireOK(t, send[SetPassword, result.Void](t, f.as(ownerID), f.d, SetPassword{NewPassword: "first-password"}))
	stored := f.user(ownerID).PasswordHash
	assert.NotEqual(t, "first-password", stored)

	res := send[SetPassword, result.Void](t, f.as(ownerID), f.d, SetPassword{NewPassword: "second-password"})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, "current_password", res.Problem().Fields[0].Field)

	res = send[SetPassword, result.Void](t, f.as(ownerID), f.d, SetPassword{CurrentPassword: "wrong", NewPassword: "second-password"})
	assert.Equal(t, "current password is incorrect", res.Message())

	requireOK(t, send[SetPassword, result.Void](t, f.as(ownerID), f.d, SetPassword{CurrentPassword: "first-password", NewPassword: "second-password"}))
	assert.NotEqual(t, stored, f.user(ownerID).PasswordHash)

	res = send[SetPassword, result.Void](t, f.as(ownerID), f.d, SetPassword{NewPassword: "short"})
	assert.Equal(t, "validation failed: new_password: must be at least 8 characters", res.Message())
}
