package handler

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/orvelte/lifecycled/fault"
)

// ProcessSink spawns command as a long-lived child process and feeds
// it firing lines on its standard input, in the manner of
// bitmark-cli's password-agent helper: one exec.Command per
// declaration. Its stdout and stderr are not connected, so the
// command's own output is discarded.
type ProcessSink struct {
	name  string
	cmd   *exec.Cmd
	pipe  io.WriteCloser
	in    *bufio.Writer
	mu    sync.Mutex
}

// NewProcessSink parses a "name=command" declaration and starts the
// command, returning a Sink backed by its stdin pipe.
func NewProcessSink(declaration string) (*ProcessSink, error) {
	i := strings.IndexByte(declaration, '=')
	if i < 0 {
		return nil, fault.ErrMissingHandlerEquals
	}
	name := declaration[:i]
	command := declaration[i+1:]
	if name == "" || command == "" {
		return nil, fault.ErrInvalidOpenArguments
	}

	cmd := exec.Command("/bin/sh", "-c", command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fault.ErrHandlerOpenFailed
	}
	if err := cmd.Start(); err != nil {
		return nil, fault.ErrHandlerOpenFailed
	}

	return &ProcessSink{
		name: name,
		cmd:  cmd,
		pipe: stdin,
		in:   bufio.NewWriter(stdin),
	}, nil
}

func (s *ProcessSink) Name() string { return s.name }

func (s *ProcessSink) Fire(dn string, attr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.in, dn+"\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(s.in, attr+"\n"); err != nil {
		return err
	}
	return s.in.Flush()
}

func (s *ProcessSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipe.Close()
	return s.cmd.Wait()
}
