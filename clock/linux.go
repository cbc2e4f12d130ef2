//go:build linux

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// SystemAdjuster adjusts the host clock via unix.Settimeofday for a large
// step and unix.Adjtimex (ADJ_OFFSET) for an incremental slew — Linux has no
// BSD-style adjtime syscall, so adjtimex's offset-only mode stands in for it.
type SystemAdjuster struct{}

// NewSystemAdjuster returns the Linux Adjuster.
func NewSystemAdjuster() *SystemAdjuster { return &SystemAdjuster{} }

func (*SystemAdjuster) HasIncremental() bool { return true }

func (*SystemAdjuster) SetLarge(want time.Time) error {
	tv := unix.NsecToTimeval(want.UnixNano())
	return unix.Settimeofday(&tv)
}

func (*SystemAdjuster) SetIncremental(want time.Time) error {
	offsetMicros := time.Until(want).Microseconds()
	tx := unix.Timex{
		Modes:  unix.ADJ_OFFSET,
		Offset: offsetMicros,
	}
	_, err := unix.Adjtimex(&tx)
	return err
}
