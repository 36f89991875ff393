// Package device drives a FarmBot through celery script RPCs sent over the
// web app's MQTT broker.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model"
	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

var L = logging.Logger

// ErrRPC is returned when the device answers a request with rpc_error.
var ErrRPC = errors.New("device rpc error")

// Device is the set of commands a watering cycle needs. Every call blocks
// until the device confirmed the command or ctx is done.
type Device interface {
	MoveAbsolute(ctx context.Context, x, y, z float64) error
	WritePin(ctx context.Context, pin, mode, value int) error
	ReadPin(ctx context.Context, pin, mode int) error
	ExecSequence(ctx context.Context, sequenceID, toolID int) error
	Wait(ctx context.Context, d time.Duration) error
}

// valveOffTimeout bounds the closing write_pin once the caller's ctx is gone.
const valveOffTimeout = 30 * time.Second

// Water opens the valve on pin, waits dur and closes it again. The valve is
// closed even if ctx ends while waiting.
func Water(ctx context.Context, d Device, pin int, dur time.Duration) error {
	if err := d.WritePin(ctx, pin, model.PinModeDigital, 1); err != nil {
		return fmt.Errorf("valve %d on: %w", pin, err)
	}
	waitErr := d.Wait(ctx, dur)

	offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), valveOffTimeout)
	defer cancel()
	if err := d.WritePin(offCtx, pin, model.PinModeDigital, 0); err != nil {
		return errors.Join(waitErr, fmt.Errorf("valve %d off: %w", pin, err))
	}
	return waitErr
}
