// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus_test

import (
	"testing"

	"github.com/orvelte/lifecycled/messagebus"
)

func TestSendAndReceive(t *testing.T) {
	bus := messagebus.New("test", 10)

	items := []string{"c1", "c2", "c3"}
	for _, item := range items {
		bus.Send("env1", item)
	}

	queue := bus.Chan()
	for _, item := range items {
		received := <-queue
		if received.From != "env1" {
			t.Errorf("actual from: %q  expected: %q", received.From, "env1")
		}
		if received.Item != item {
			t.Errorf("actual: %v  expected: %v", received.Item, item)
		}
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	bus := messagebus.New("test", 1)

	bus.Send("env1", "kept")
	bus.Send("env1", "dropped") // buffer full, dropped rather than blocking

	received := <-bus.Chan()
	if received.Item != "kept" {
		t.Errorf("actual: %v  expected: %v", received.Item, "kept")
	}

	select {
	case extra := <-bus.Chan():
		t.Errorf("unexpected extra message: %v", extra)
	default:
	}
}

func TestNamedBusesAreDistinct(t *testing.T) {
	if messagebus.Commit.Name() == messagebus.Fire.Name() {
		t.Errorf("expected Commit and Fire buses to have distinct names")
	}
}
