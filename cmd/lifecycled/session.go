package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/orvelte/lifecycled/environ"
)

// session handles one connection's worth of the newline-delimited
// command protocol from SPEC_FULL.md §6: each line is one command,
// each reply is a single "OK" or "ERR <reason>" line.
type session struct {
	id       string
	log      *logger.L
	registry *registry
	conn     net.Conn
}

func newSession(log *logger.L, reg *registry, conn net.Conn) *session {
	id := uuid.New().String()
	return &session{id: id, log: log, registry: reg, conn: conn}
}

func (s *session) run() {
	defer s.conn.Close()

	scanner := bufio.NewScanner(s.conn)
	writer := bufio.NewWriter(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.log != nil {
			s.log.Debugf("[%s] %s", s.id, line)
		}

		reply := s.dispatch(line)
		fmt.Fprintln(writer, reply)
		if err := writer.Flush(); err != nil {
			if s.log != nil {
				s.log.Errorf("[%s] write failed: %s", s.id, err)
			}
			return
		}
	}
	if err := scanner.Err(); err != nil && s.log != nil {
		s.log.Errorf("[%s] read failed: %s", s.id, err)
	}
}

// dispatch decodes one protocol line and runs it, returning the
// single-line reply.
func (s *session) dispatch(line string) string {
	fields := strings.Fields(line)
	command := strings.ToUpper(fields[0])
	args := fields[1:]

	var err error
	switch command {
	case "OPEN":
		_, err = s.registry.open(args)
	case "ADD":
		err = s.withEnvAndDER(args, func(e *environ.Environment, derDN, derAttr []byte) error {
			return e.Add(derDN, derAttr)
		})
	case "DEL":
		err = s.withEnvAndDER(args, func(e *environ.Environment, derDN, derAttr []byte) error {
			return e.Delete(derDN, derAttr)
		})
	case "RESET":
		err = s.withEnv(args, func(e *environ.Environment) error { return e.ResetTransaction() })
	case "PREPARE":
		err = s.withEnv(args, func(e *environ.Environment) error { return e.Prepare() })
	case "COMMIT":
		err = s.withEnv(args, func(e *environ.Environment) error { return e.Commit() })
	case "ROLLBACK":
		err = s.withEnv(args, func(e *environ.Environment) error { e.Rollback(); return nil })
	case "COLLABORATE":
		err = s.collaborate(args)
	case "CLOSE":
		err = s.close(args)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}

	if err != nil {
		return "ERR " + err.Error()
	}
	return "OK"
}

func (s *session) withEnv(args []string, f func(*environ.Environment) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one environment name, got %d arguments", len(args))
	}
	e, err := s.registry.lookup(args[0])
	if err != nil {
		return err
	}
	return f(e)
}

func (s *session) withEnvAndDER(args []string, f func(e *environ.Environment, derDN, derAttr []byte) error) error {
	if len(args) != 3 {
		return fmt.Errorf("expected environment name and two base64 values, got %d arguments", len(args))
	}
	e, err := s.registry.lookup(args[0])
	if err != nil {
		return err
	}
	derDN, err := base64.StdEncoding.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("malformed base64 dn value: %w", err)
	}
	derAttr, err := base64.StdEncoding.DecodeString(args[2])
	if err != nil {
		return fmt.Errorf("malformed base64 attribute value: %w", err)
	}
	return f(e, derDN, derAttr)
}

func (s *session) collaborate(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected exactly two environment names, got %d arguments", len(args))
	}
	e1, err := s.registry.lookup(args[0])
	if err != nil {
		return err
	}
	e2, err := s.registry.lookup(args[1])
	if err != nil {
		return err
	}
	return environ.Collaborate(e1, e2)
}

func (s *session) close(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one environment name, got %d arguments", len(args))
	}
	return s.registry.close(args[0])
}
