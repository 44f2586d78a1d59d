package main

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func startTestServer(t *testing.T) (socketPath string, reg *registry) {
	t.Helper()

	socketPath = filepath.Join(t.TempDir(), "lifecycled.sock")
	reg = newRegistry(nil)

	srv, err := newServer(nil, socketPath, reg)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		srv.run()
		close(done)
	}()
	t.Cleanup(func() {
		srv.listener.Close()
		reg.closeAll()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Errorf("server did not shut down after listener close")
		}
	})
	return socketPath, reg
}

func dialAndRoundTrip(t *testing.T, socketPath string, lines ...string) []string {
	t.Helper()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	replies := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
		reply, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply to %q: %v", line, err)
		}
		replies = append(replies, reply[:len(reply)-1])
	}
	return replies
}

func TestServerAcceptsProtocolOverSocket(t *testing.T) {
	socketPath, reg := startTestServer(t)

	dn := b64der("uid=bakker,dc=orvelte,dc=nep")
	ap := b64der("x . go@ gone@")

	replies := dialAndRoundTrip(t, socketPath,
		"OPEN env1 x=cat",
		"ADD env1 "+dn+" "+ap,
		"PREPARE env1",
		"COMMIT env1",
	)
	for i, reply := range replies {
		if reply != "OK" {
			t.Fatalf("line %d: got %q, wanted OK", i, reply)
		}
	}

	e, err := reg.lookup("env1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if names := e.DumpObjects(); len(names) != 1 {
		t.Fatalf("expected one committed object, got %v", names)
	}
}

func TestServerRejectsUnknownEnvironment(t *testing.T) {
	socketPath, _ := startTestServer(t)

	replies := dialAndRoundTrip(t, socketPath, "RESET nosuchenv")
	if len(replies) != 1 || replies[0] == "OK" {
		t.Fatalf("expected an ERR reply, got %v", replies)
	}
}
