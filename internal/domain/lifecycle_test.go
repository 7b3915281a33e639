package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaLifecycle(t *testing.T) {
	p := &Persona{ID: "p-1", CreatorID: "u-1", Name: "Ada", ImagePath: "img/ada.png", IsPublic: true, Status: PersonaStatusActive}

	require.NoError(t, p.Suspend(t0))
	assert.Equal(t, PersonaStatusSuspended, p.Status)
	assert.False(t, p.IsPubliclyVisible())
	assert.True(t, p.AccessibleBy("u-1"))
	assert.False(t, p.AccessibleBy("u-2"))

	_, err := p.Archive(t0)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, p.Reinstate(t0))
	snap, err := p.Archive(t0)
	require.NoError(t, err)
	assert.Equal(t, PersonaSnapshot{Name: "Ada", ImagePath: "img/ada.png", DeletedAt: t0}, snap)
	assert.Equal(t, PersonaStatusArchived, p.Status)
	assert.False(t, p.Editable())

	assert.ErrorIs(t, p.Suspend(t0), ErrIllegalTransition)
	assert.ErrorIs(t, p.Reinstate(t0), ErrIllegalTransition)
}

func TestChatSessionSnapshotIsImmutable(t *testing.T) {
	s := &ChatSession{ID: "s-1", PersonaID: "p-1"}
	assert.True(t, s.FreezePersona(PersonaSnapshot{Name: "Ada", ImagePath: "a.png", DeletedAt: t0}))
	assert.False(t, s.FreezePersona(PersonaSnapshot{Name: "Renamed", ImagePath: "b.png", DeletedAt: t0.Add(time.Hour)}))
	assert.Equal(t, "Ada", s.PersonaSnapshot.Name)
	assert.Equal(t, "a.png", s.PersonaSnapshot.ImagePath)
}

func TestReportResolution(t *testing.T) {
	r := &Report{ID: "r-1", Status: ReportStatusPending}
	note := "removed content"

	require.NoError(t, r.Resolve(ReportStatusReviewing, "admin-1", nil, t0))
	assert.Nil(t, r.ResolvedAt)

	require.NoError(t, r.Resolve(ReportStatusResolved, "admin-1", &note, t0))
	assert.Equal(t, "admin-1", *r.ResolvedByID)
	assert.Equal(t, "removed content", *r.Resolution)
	assert.Equal(t, t0, *r.ResolvedAt)

	assert.ErrorIs(t, r.Resolve(ReportStatusDismissed, "admin-2", nil, t0), ErrIllegalTransition)
	assert.Equal(t, "admin-1", *r.ResolvedByID)
}

func TestUserSuspensionWindow(t *testing.T) {
	u := &User{ID: "u-1"}
	until := t0.Add(24 * time.Hour)

	require.NoError(t, u.Suspend(&until, nil, t0))
	assert.True(t, u.SuspensionActive(t0))
	assert.False(t, u.SuspensionElapsed(t0))
	assert.False(t, u.SuspensionActive(until))
	assert.True(t, u.SuspensionElapsed(until))

	require.NoError(t, u.Suspend(nil, nil, t0))
	assert.True(t, u.SuspensionActive(t0.Add(1000*time.Hour)))

	u.Unsuspend(t0)
	assert.False(t, u.IsSuspended)
	assert.Nil(t, u.SuspendedUntil)
}

func TestUserSuspensionRules(t *testing.T) {
	admin := &User{ID: "a-1", IsAdmin: true}
	err := admin.Suspend(nil, nil, t0)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.EqualError(t, err, "Cannot suspend admin users")
	assert.False(t, admin.IsSuspended)

	u := &User{ID: "u-1"}
	past := t0.Add(-time.Minute)
	assert.ErrorIs(t, u.Suspend(&past, nil, t0), ErrInvalidInput)
	assert.False(t, u.IsSuspended)
}

func TestUnlinkGoogle(t *testing.T) {
	gid := "google-123"
	noPassword := &User{ID: "u-1", GoogleID: &gid}
	assert.ErrorIs(t, noPassword.UnlinkGoogle(t0), ErrInvalidInput)
	assert.NotNil(t, noPassword.GoogleID)

	withPassword := &User{ID: "u-2", GoogleID: &gid, PasswordHash: "$2a$hash"}
	require.NoError(t, withPassword.UnlinkGoogle(t0))
	assert.Nil(t, withPassword.GoogleID)

	assert.ErrorIs(t, withPassword.UnlinkGoogle(t0), ErrIllegalTransition)
}
