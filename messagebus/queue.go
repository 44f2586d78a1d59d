// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

// internal constants
const (
	queueSize = 1000
)

// Message is one notification posted to a Bus: From names the
// environment that produced it, Item carries the payload.
type Message struct {
	From string
	Item interface{}
}

// Bus is a single named, buffered notification queue.
type Bus struct {
	name  string
	queue chan Message
}

// New creates a Bus with the given buffer size.
func New(name string, size int) *Bus {
	return &Bus{
		name:  name,
		queue: make(chan Message, size),
	}
}

// Name returns the bus's name, for logging.
func (b *Bus) Name() string {
	return b.name
}

// Send posts item onto the bus. If the buffer is full the message is
// dropped, consistent with this being a best-effort notification
// channel rather than a durable log.
func (b *Bus) Send(from string, item interface{}) {
	select {
	case b.queue <- Message{From: from, Item: item}:
	default:
	}
}

// Chan returns the channel to read queued messages from.
func (b *Bus) Chan() <-chan Message {
	return b.queue
}

var (
	// Commit carries one notification per environment commit, Item
	// being the slice of every DN the environment held when it
	// committed, including any the commit reaped.
	Commit = New("commit", queueSize)

	// Fire carries one notification per attribute-program firing,
	// Item being the object's DN and the fired attribute text,
	// separated by a space.
	Fire = New("fire", queueSize)
)
