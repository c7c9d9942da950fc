//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package pty

import (
	"errors"
	"io"
	"runtime"
)

func startProcess(Command, Size) (io.ReadWriteCloser, Process, error) {
	return nil, nil, errors.New("terminal sessions are not supported on " + runtime.GOOS)
}
