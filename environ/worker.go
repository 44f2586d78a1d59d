package environ

import (
	"time"

	"github.com/orvelte/lifecycled/attribute"
)

// workerLoop is the service worker (§4.8): on start it acquires the
// mutex and loops while SERVICED is set, advancing waits, firing due
// timers, and waiting on the condition bounded by the next scheduled
// fire time. Its signature matches background.Process so it plugs
// directly into background.Start/Stop.
func (e *Environment) workerLoop(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	e.mu.Lock()
	defer e.mu.Unlock()

	for e.serviced {
		select {
		case <-shutdown:
			return
		default:
		}

		e.pass()

		deadline := e.nextDeadline()
		e.timedWait(shutdown, deadline)
	}
}

// pass runs one §4.8.2 pass: advance every object's '?' waits, then
// sort-and-fire due timers.
func (e *Environment) pass() {
	now := time.Now().Unix()
	for _, o := range e.order {
		o.AdvanceAll(e.log)
	}
	e.sortAndFire(now)
}

// nextDeadline returns the absolute time the worker should wake by,
// or the zero Time for "wait unbounded" when nothing is scheduled.
func (e *Environment) nextDeadline() time.Time {
	if e.sortedLen == 0 || len(e.order) == 0 {
		return time.Time{}
	}
	head := e.order[0]
	fire := e.effectiveObjectFireTime(head, time.Now().Unix())
	if fire >= attribute.MaxFireTime {
		return time.Time{}
	}
	return time.Unix(fire, 0)
}

// timedWait releases the mutex and blocks until the condition is
// signalled, shutdown fires, or deadline elapses — whichever comes
// first — then re-acquires the mutex before returning. A zero
// deadline waits unbounded on the condition alone.
func (e *Environment) timedWait(shutdown <-chan bool, deadline time.Time) {
	woken := make(chan struct{})
	var timer *time.Timer
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		timer = time.AfterFunc(d, func() {
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-shutdown:
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		case <-woken:
		}
	}()

	e.cond.Wait()
	close(woken)
	if timer != nil {
		timer.Stop()
	}
}
