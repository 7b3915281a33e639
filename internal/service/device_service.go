package service

import (
	"context"
	"strings"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// RegisterDevice records a push token for the caller.
type RegisterDevice struct {
	Platform  string `json:"platform" validate:"required,oneof=ios android web"`
	PushToken string `json:"push_token" validate:"required,max=512"`
}

func (RegisterDevice) RequestName() string { return "register_device" }

// UnregisterDevice removes one of the caller's devices.
type UnregisterDevice struct {
	DeviceID string `json:"device_id" validate:"required"`
}

func (UnregisterDevice) RequestName() string { return "unregister_device" }

// ListMyDevices lists the caller's devices.
type ListMyDevices struct{}

func (ListMyDevices) RequestName() string { return "list_my_devices" }

// DeviceService manages push registrations.
type DeviceService struct {
	base
}

// NewDeviceService constructs the service.
func NewDeviceService(deps Dependencies) *DeviceService {
	return &DeviceService{base: newBase(deps)}
}

func (s *DeviceService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[RegisterDevice, domain.Device](s.RegisterDevice), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[UnregisterDevice, result.Void](s.UnregisterDevice), dispatch.WithPolicy(dispatch.Policy[UnregisterDevice]{
		Owner: ownerOf("device", func(ctx context.Context, req UnregisterDevice) (*domain.Device, error) {
			return s.store.Repos().Devices.GetByID(ctx, req.DeviceID)
		}, func(d *domain.Device) string { return d.UserID }),
		Resource: "device",
	}))
	dispatch.Register(reg, dispatch.HandlerFunc[ListMyDevices, []domain.Device](s.ListMyDevices), dispatch.Authenticated())
}

// RegisterDevice is idempotent per push token. A token registered by another
// user moves to the caller.
func (s *DeviceService) RegisterDevice(ctx context.Context, req RegisterDevice) (result.Result[domain.Device], error) {
	actor := s.actor(ctx)
	token := strings.TrimSpace(req.PushToken)

	var out domain.Device
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		existing, err := tx.Devices.ListByUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		for _, d := range existing {
			if d.PushToken == token {
				out = d
				return nil
			}
		}
		device := &domain.Device{
			ID:        s.newID(),
			UserID:    actor.ID,
			Platform:  req.Platform,
			PushToken: token,
			CreatedAt: s.now(),
		}
		if err := tx.Devices.Create(ctx, device); err != nil {
			return err
		}
		out = *device
		return nil
	})
	return outcome(out, err, "device")
}

// UnregisterDevice deletes the row.
func (s *DeviceService) UnregisterDevice(ctx context.Context, req UnregisterDevice) (result.Result[result.Void], error) {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return tx.Devices.Delete(ctx, req.DeviceID)
	})
	return outcome(result.Void{}, err, "device")
}

// ListMyDevices returns devices oldest first.
func (s *DeviceService) ListMyDevices(ctx context.Context, _ ListMyDevices) (result.Result[[]domain.Device], error) {
	devices, err := s.store.Repos().Devices.ListByUser(ctx, s.actor(ctx).ID)
	if err != nil {
		return failed[[]domain.Device](err, "device")
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	return result.Success(devices), nil
}
