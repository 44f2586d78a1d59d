package environ

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/orvelte/lifecycled/handler"
)

// TestSortAndFireSingleDueObjectDoesNotPanic drives pass() against the
// single-object, immediately-due '@' case: the object's one and only
// tail slot coincides with sortedLen (0) on entry, so its splice lands
// exactly at the tail boundary — the case that used to desync i from
// sortedLen and panic on the next insertionPoint call.
func TestSortAndFireSingleDueObjectDoesNotPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := handler.NewMockSink(ctrl)
	sink.EXPECT().Fire("uid=bakker,dc=orvelte,dc=nep", "x . go@ gone@").Return(nil)

	e := newTestEnvironment(map[string]handler.Sink{"x": sink})
	if err := e.Add(der("uid=bakker,dc=orvelte,dc=nep"), der("x . go@ gone@")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	e.pass()

	if e.sortedLen != 1 || len(e.order) != 1 {
		t.Fatalf("expected a single sorted object, got sortedLen=%d len(order)=%d", e.sortedLen, len(e.order))
	}
}

// TestPassFiresDueTimerAndAppliesBackoff checks that a due '@' step
// fires exactly once per pass, and that the miss counter and shadow
// re-fire time both advance per §4.8.3.
func TestPassFiresDueTimerAndAppliesBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := handler.NewMockSink(ctrl)
	sink.EXPECT().Fire("uid=bakker,dc=orvelte,dc=nep", "x . go@ gone@").Return(nil).Times(1)

	e := newTestEnvironment(map[string]handler.Sink{"x": sink})
	if err := e.Add(der("uid=bakker,dc=orvelte,dc=nep"), der("x . go@ gone@")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	e.pass()

	o := e.objects["uid=bakker,dc=orvelte,dc=nep"]
	p := o.Committed[0]
	if e.missed[p] != 1 {
		t.Fatalf("expected one missed pass recorded, got %d", e.missed[p])
	}
	if shadow, ok := e.shadowFire[p]; !ok || shadow <= p.Fire {
		t.Fatalf("expected a shadow re-fire time past the AP's own fire time, got %d (Fire=%d)", shadow, p.Fire)
	}
}

// TestNextDeadlineReflectsBackoffShadow confirms that once an '@' AP
// has fired without a directory round-trip, nextDeadline follows the
// back-off shadow instead of the AP's unchanged, now-past Fire value
// — otherwise the worker would busy-spin instead of sleeping out the
// back-off delay.
func TestNextDeadlineReflectsBackoffShadow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := handler.NewMockSink(ctrl)
	sink.EXPECT().Fire("uid=bakker,dc=orvelte,dc=nep", "x . go@ gone@").Return(nil)

	e := newTestEnvironment(map[string]handler.Sink{"x": sink})
	if err := e.Add(der("uid=bakker,dc=orvelte,dc=nep"), der("x . go@ gone@")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	before := time.Now().Unix()
	e.pass()

	deadline := e.nextDeadline()
	if deadline.IsZero() {
		t.Fatalf("expected a bounded deadline after a back-off was applied")
	}
	if deadline.Unix() <= before {
		t.Fatalf("expected the deadline to follow the back-off shadow, got %v (before=%d)", deadline, before)
	}
}

// TestSortAndFireOrdersByFireTime exercises the tail-scan splice
// across several not-yet-due objects, verifying the sorted prefix
// ends up ordered by ascending fire time with no panic. The fire
// times sit seconds ahead of now, not at small absolute values, since
// an absolute timestamp far in the past would leave fireDueTimers'
// back-off schedule permanently unable to catch up to now and spin.
func TestSortAndFireOrdersByFireTime(t *testing.T) {
	e := newTestEnvironment(nil)
	now := time.Now().Unix()

	fixtures := []struct {
		dn   string
		attr string
	}{
		{"uid=c,dc=orvelte,dc=nep", fmt.Sprintf("x . go@%d gone@", now+3)},
		{"uid=a,dc=orvelte,dc=nep", fmt.Sprintf("x . go@%d gone@", now+1)},
		{"uid=b,dc=orvelte,dc=nep", fmt.Sprintf("x . go@%d gone@", now+2)},
	}
	for _, f := range fixtures {
		if err := e.Add(der(f.dn), der(f.attr)); err != nil {
			t.Fatalf("add %s failed: %v", f.dn, err)
		}
		if err := e.Commit(); err != nil {
			t.Fatalf("commit %s failed: %v", f.dn, err)
		}
	}

	e.sortAndFire(now)

	if e.sortedLen != len(e.order) {
		t.Fatalf("expected the whole order fully sorted, got sortedLen=%d len(order)=%d", e.sortedLen, len(e.order))
	}
	want := []string{"uid=a,dc=orvelte,dc=nep", "uid=b,dc=orvelte,dc=nep", "uid=c,dc=orvelte,dc=nep"}
	for i, dn := range want {
		if e.order[i].DN != dn {
			t.Errorf("order[%d] = %q, want %q", i, e.order[i].DN, dn)
		}
	}
}
