package environ

import (
	"time"

	"github.com/orvelte/lifecycled/lcobject"
)

// sortAndFire implements §4.6: the tail of e.order (from sortedLen
// onward) is walked once; any object whose fire time falls inside the
// live window is spliced into the sorted prefix. Once the walk
// completes, fires are run via fire-due-timers; if firing took longer
// than the window the whole pass restarts, since the partial sort may
// no longer be valid.
func (e *Environment) sortAndFire(now int64) {
restart:
	window := int64(1<<62 - 1) // effectively unbounded
	i := e.sortedLen
	for i < len(e.order) {
		o := e.order[i]
		fire := e.effectiveObjectFireTime(o, now)

		use := fire <= now
		if !use && fire-now <= window {
			use = true
			if (fire-now)*2 < window {
				window = 2 * (fire - now)
			}
		}

		if !use {
			i++
			continue
		}

		e.order = append(e.order[:i], e.order[i+1:]...)
		pos := e.insertionPoint(fire, now)
		e.order = insertObject(e.order, pos, o)
		e.sortedLen++
		// the splice is length-neutral: removing o at i and
		// reinserting it at pos <= i shifts the slots pos..i one place
		// right, so slot i now holds an already-sorted object (when i
		// was the tail boundary, the case of nothing skipped yet) or an
		// already-skipped one, and the next unvisited candidate sits at
		// i+1. Catching i up to the new sortedLen keeps the walk out of
		// the sorted prefix, which would otherwise reprocess o and walk
		// insertionPoint past the shrunk order slice; a skipped object
		// left at i is merely examined again.
		if i < e.sortedLen {
			i = e.sortedLen
		}
	}

	start := now
	e.fireDueTimers(now)
	elapsed := time.Now().Unix() - start
	if elapsed > window {
		now = time.Now().Unix()
		goto restart
	}
}

// insertionPoint finds the first index in the sorted prefix whose
// fire time is strictly greater than fire, i.e. where o belongs.
func (e *Environment) insertionPoint(fire int64, now int64) int {
	lo, hi := 0, e.sortedLen
	if hi > len(e.order) {
		hi = len(e.order)
	}
	for lo < hi {
		mid := (lo + hi) / 2
		if e.effectiveObjectFireTime(e.order[mid], now) <= fire {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func insertObject(list []*lcobject.Object, pos int, o *lcobject.Object) []*lcobject.Object {
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = o
	return list
}
