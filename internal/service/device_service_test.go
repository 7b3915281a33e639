package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

func TestRegisterDeviceIsIdempotentPerToken(t *testing.T) {
	f := newFixture(t)

	first := requireOK(t, send[RegisterDevice, domain.Device](t, f.as(ownerID), f.d, RegisterDevice{Platform: "ios", PushToken: "tok-1"}))
	again := requireOK(t, send[RegisterDevice, domain.Device](t, f.as(ownerID), f.d, RegisterDevice{Platform: "ios", PushToken: " tok-1 "}))
	assert.Equal(t, first.ID, again.ID)

	devices := requireOK(t, send[ListMyDevices, []domain.Device](t, f.as(ownerID), f.d, ListMyDevices{}))
	assert.Len(t, devices, 1)

	res := send[RegisterDevice, domain.Device](t, f.as(ownerID), f.d, RegisterDevice{Platform: "windows-phone", PushToken: "x"})
	assert.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, "must be one of ios, android, web", res.Problem().Fields[0].Message)
}

func TestUnregisterDeviceDeletesRow(t *testing.T) {
	f := newFixture(t)
	d := requireOK(t, send[RegisterDevice, domain.Device](t, f.as(ownerID), f.d, RegisterDevice{Platform: "android", PushToken: "tok-2"}))

	res := send[UnregisterDevice, result.Void](t, f.as(otherID), f.d, UnregisterDevice{DeviceID: d.ID})
	assert.Equal(t, result.StatusForbidden, res.Status())

	requireOK(t, send[UnregisterDevice, result.Void](t, f.as(ownerID), f.d, UnregisterDevice{DeviceID: d.ID}))
	_, err := f.store.Repos().Devices.GetByID(context.Background(), d.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	res = send[UnregisterDevice, result.Void](t, f.as(ownerID), f.d, UnregisterDevice{DeviceID: d.ID})
	assert.Equal(t, result.StatusNotFound, res.Status())
	assert.Equal(t, "device not found", res.Message())
}

func TestRegisterDeviceMovesTokenToNewUser(t *testing.T) {
	f := newFixture(t)

	first := requireOK(t, send[RegisterDevice, domain.Device](t, f.as(ownerID), f.d, RegisterDevice{Platform: "ios", PushToken: "shared"}))
	moved := requireOK(t, send[RegisterDevice, domain.Device](t, f.as(otherID), f.d, RegisterDevice{Platform: "android", PushToken: "shared"}))
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, otherID, moved.UserID)
	assert.Equal(t, "android", moved.Platform)

	mine := requireOK(t, send[ListMyDevices, []domain.Device](t, f.as(ownerID), f.d, ListMyDevices{}))
	assert.Empty(t, mine)
	theirs := requireOK(t, send[ListMyDevices, []domain.Device](t, f.as(otherID), f.d, ListMyDevices{}))
	require.Len(t, theirs, 1)
	assert.Equal(t, "shared", theirs[0].PushToken)
}
