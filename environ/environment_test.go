package environ

import (
	"sync"
	"testing"

	"github.com/orvelte/lifecycled/attribute"
	"github.com/orvelte/lifecycled/handler"
	"github.com/orvelte/lifecycled/lcobject"
	"github.com/orvelte/lifecycled/wireattr"
)

// der wraps payload in a short-form DER header, mirroring the
// fixtures from the original add/delete and collaborate test drivers.
func der(payload string) []byte {
	return wireattr.EncodeHeader([]byte(payload))
}

// newTestEnvironment builds an Environment directly, bypassing Open's
// process-spawning so tests can inject fakes for its handler table.
func newTestEnvironment(handlers map[string]handler.Sink) *Environment {
	e := &Environment{
		Name:       "test",
		objects:    make(map[string]*lcobject.Object),
		handlers:   handlers,
		shadowFire: make(map[*attribute.Program]int64),
		missed:     make(map[*attribute.Program]uint8),
		sequence:   nextSequence(),
		serviced:   true,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func TestOpenTransactionAddAndCommit(t *testing.T) {
	e := newTestEnvironment(nil)

	dn1 := der("uid=bakker,dc=orvelte,dc=nep")
	at1 := der("x . go@ gone@")
	at2 := der("y aap@12345 . noot@ mies@")

	if err := e.Add(dn1, at1); err != nil {
		t.Fatalf("Add(dn1,at1) failed: %v", err)
	}
	if err := e.Add(dn1, at2); err != nil {
		t.Fatalf("Add(dn1,at2) failed: %v", err)
	}
	if err := e.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	o := e.objects["uid=bakker,dc=orvelte,dc=nep"]
	if o == nil {
		t.Fatalf("expected object to exist after commit")
	}
	if len(o.Committed) != 2 {
		t.Fatalf("expected two committed APs, got %d", len(o.Committed))
	}
}

func TestAddDuplicateAborts(t *testing.T) {
	e := newTestEnvironment(nil)
	dn1 := der("uid=bakker,dc=orvelte,dc=nep")
	at1 := der("x . go@ gone@")

	if err := e.Add(dn1, at1); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := e.Add(dn1, at1); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
	if err := e.Commit(); err == nil {
		t.Fatalf("expected commit after abort to fail")
	}
}

func TestDeleteThenCommitEmptiesObject(t *testing.T) {
	e := newTestEnvironment(nil)
	dn1 := der("uid=bakker,dc=orvelte,dc=nep")
	at1 := der("x . go@ gone@")

	if err := e.Add(dn1, at1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if err := e.Delete(dn1, at1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit after delete failed: %v", err)
	}

	if _, ok := e.objects["uid=bakker,dc=orvelte,dc=nep"]; ok {
		t.Fatalf("expected object to be reaped once empty")
	}
}

func TestCollaborateSplicesCycles(t *testing.T) {
	e1 := newTestEnvironment(nil)
	e2 := newTestEnvironment(nil)

	if err := e1.OpenTransaction(); err != nil {
		t.Fatalf("open e1 failed: %v", err)
	}
	if err := e2.OpenTransaction(); err != nil {
		t.Fatalf("open e2 failed: %v", err)
	}

	if err := Collaborate(e1, e2); err != nil {
		t.Fatalf("collaborate failed: %v", err)
	}

	seen := map[*Environment]bool{}
	member := e1
	for i := 0; i < 10 && !seen[member]; i++ {
		seen[member] = true
		member = member.cycle
	}
	if !seen[e1] || !seen[e2] {
		t.Fatalf("expected the spliced cycle to reach both environments")
	}
}

func TestCollaborateWithAbortedPeerAborts(t *testing.T) {
	e1 := newTestEnvironment(nil)
	e2 := newTestEnvironment(nil)

	if err := e1.OpenTransaction(); err != nil {
		t.Fatalf("open e1 failed: %v", err)
	}
	e2.aborted = true

	if err := Collaborate(e1, e2); err == nil {
		t.Fatalf("expected collaborate with an aborted peer to fail")
	}
	if !e1.aborted {
		t.Fatalf("expected e1 to become aborted too")
	}
}
