//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package pty

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/user/scriptcast/internal/script"
)

// unixProcess is a child attached to the slave side of a pty pair.
type unixProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}
}

func startProcess(c Command, size Size) (io.ReadWriteCloser, Process, error) {
	ptmx, tty, err := creackpty.Open()
	if err != nil {
		return nil, nil, err
	}
	defer tty.Close()

	// The size is set before the child starts so its first prompt is laid
	// out for the final terminal.
	p := &unixProcess{ptmx: ptmx, done: make(chan struct{})}
	if err := p.SetWindowSize(size.Width, size.Height); err != nil {
		ptmx.Close()
		return nil, nil, err
	}
	if c.Echo == script.EchoOff {
		if err := disableEcho(int(tty.Fd())); err != nil {
			ptmx.Close()
			return nil, nil, err
		}
	}

	cmd := exec.Command(c.Program, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	if err := cmd.Start(); err != nil {
		ptmx.Close()
		return nil, nil, err
	}

	p.cmd = cmd
	go p.waitExit()
	return ptmx, p, nil
}

func (p *unixProcess) waitExit() {
	_ = p.cmd.Wait()
	close(p.done)
}

func (p *unixProcess) SetWindowSize(width, height uint16) error {
	return creackpty.Setsize(p.ptmx, &creackpty.Winsize{Cols: width, Rows: height})
}

func (p *unixProcess) WaitTimeout(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return errWaitTimeout
	}
}

func (p *unixProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// disableEcho clears ECHO on the terminal so that the program's line editor
// does not repeat typed input.
func disableEcho(fd int) error {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	termios.Lflag &^= unix.ECHO | unix.ECHONL
	return unix.IoctlSetTermios(fd, ioctlSetTermios, termios)
}
