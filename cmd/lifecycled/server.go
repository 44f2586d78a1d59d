package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/logger"
	"golang.org/x/sync/errgroup"
)

// server accepts connections on a Unix-domain socket and hands each
// one to a session, per SPEC_FULL.md's control-plane front door.
type server struct {
	log      *logger.L
	listener net.Listener
	registry *registry
}

// newServer listens on socketPath, removing any stale socket file
// left behind by an unclean shutdown.
func newServer(log *logger.L, socketPath string, reg *registry) (*server, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}

	return &server{log: log, listener: listener, registry: reg}, nil
}

// run accepts connections until a termination signal arrives or the
// listener fails, spawning one goroutine per connection in the same
// errgroup. It returns the listener's accept error, if any, once every
// session has ended; sessions themselves never report an error.
func (s *server) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := errgroup.WithContext(ctx)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	g.Go(func() error {
		select {
		case sig := <-signals:
			if s.log != nil {
				s.log.Infof("received signal %s, closing listener", sig)
			}
			return s.listener.Close()
		case <-ctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		defer cancel()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			g.Go(func() error {
				newSession(s.log, s.registry, conn).run()
				return nil
			})
		}
	})

	return g.Wait()
}
