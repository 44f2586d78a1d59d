package main

import (
	"os"

	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/background"
	"github.com/orvelte/lifecycled/messagebus"
	"gopkg.in/yaml.v3"
)

// statusSnapshot is the on-disk shape of the operator status file: one
// entry per live environment, naming the DNs it currently holds.
type statusSnapshot struct {
	Environments map[string][]string `yaml:"environments"`
}

// statusWriter subscribes to messagebus.Commit and rewrites path with
// a fresh snapshot of the registry after every commit, giving an
// operator a plain-text view of what's resident without needing to
// speak the control-plane protocol.
type statusWriter struct {
	log  *logger.L
	path string
	reg  *registry
}

func newStatusWriter(log *logger.L, path string, reg *registry) *statusWriter {
	return &statusWriter{log: log, path: path, reg: reg}
}

// start runs the writer as a background.Process: it wakes on every
// commit notification, writing one snapshot per notification, and on
// shutdown.
func (w *statusWriter) start() *background.T {
	return background.Start(background.Processes{w.run}, nil)
}

func (w *statusWriter) run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	commits := messagebus.Commit.Chan()
	for {
		select {
		case <-shutdown:
			return
		case <-commits:
			w.writeSnapshot()
		}
	}
}

func (w *statusWriter) writeSnapshot() {
	snap := statusSnapshot{Environments: w.reg.snapshot()}

	out, err := yaml.Marshal(snap)
	if err != nil {
		if w.log != nil {
			w.log.Errorf("status snapshot marshal failed: %s", err)
		}
		return
	}
	if err := os.WriteFile(w.path, out, 0644); err != nil {
		if w.log != nil {
			w.log.Errorf("status snapshot write to %q failed: %s", w.path, err)
		}
	}
}
