package pty

import "errors"

var (
	ErrSpawn         = errors.New("could not spawn shell")
	ErrPromptTimeout = errors.New("prompt not detected before timeout")
	ErrReadTimeout   = errors.New("timed out waiting for prompt")
	ErrWrite         = errors.New("could not write to shell")
	ErrQuitTimeout   = errors.New("shell did not exit before timeout")
	ErrEncoding      = errors.New("shell output is not valid UTF-8")
	ErrStreamClosed  = errors.New("shell output closed")
)

// errWaitTimeout is returned by Process.WaitTimeout while the child is still
// running.
var errWaitTimeout = errors.New("wait timed out")
