//go:build !portaudio

package capture

import (
	"context"

	"github.com/sirupsen/logrus"
)

type stubDevice struct {
	logger *logrus.Logger
}

// NewDevice returns a device that always fails; build with -tags portaudio
// for microphone support.
func NewDevice(logger *logrus.Logger) Device {
	return &stubDevice{logger: logger}
}

func (d *stubDevice) Open(context.Context, Constraints) (Stream, error) {
	d.logger.Warn("microphone capture unavailable in this build")
	return nil, &DeviceAccessError{Err: ErrNoBackend}
}

// ListDevices is unavailable without a capture backend.
func ListDevices() ([]DeviceInfo, error) {
	return nil, ErrNoBackend
}

// Probe reports whether a capture backend can be initialized.
func Probe() error {
	return ErrNoBackend
}
