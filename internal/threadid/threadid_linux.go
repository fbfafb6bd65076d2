//go:build linux

package threadid

import "golang.org/x/sys/unix"

const supported = true

func current() ID { return ID(unix.Gettid()) } //nolint:gosec // tid is positive
