//go:build !linux

package clock

import (
	"errors"
	"time"
)

// SystemAdjuster is a no-op stand-in on platforms without the Linux
// settimeofday/adjtimex syscalls; Apply still exercises the classification
// logic but returns an error instead of touching the host clock.
type SystemAdjuster struct{}

// NewSystemAdjuster returns the non-Linux stub Adjuster.
func NewSystemAdjuster() *SystemAdjuster { return &SystemAdjuster{} }

func (*SystemAdjuster) HasIncremental() bool { return false }

var errUnsupported = errors.New("clock: system clock adjustment is not supported on this platform")

func (*SystemAdjuster) SetLarge(time.Time) error       { return errUnsupported }
func (*SystemAdjuster) SetIncremental(time.Time) error { return errUnsupported }
