package environ

import (
	"github.com/orvelte/lifecycled/attribute"
	"github.com/orvelte/lifecycled/lcobject"
	"github.com/orvelte/lifecycled/messagebus"
)

const (
	baseBackoffSeconds = 1
	backoffCap         = 10
	maxBackoffSeconds  = 3600
)

// fireDueTimers implements §4.8.3 across the sorted prefix, head
// first: while an object's fire time is due, fire every due '@' AP it
// owns and refresh its fire time; once none of its APs want to fire
// right now, go on to the next object. Objects that are not due are
// skipped, so a call may fire nothing.
func (e *Environment) fireDueTimers(now int64) {
	n := e.sortedLen
	if n > len(e.order) {
		n = len(e.order)
	}
	for _, o := range e.order[:n] {
		for e.effectiveObjectFireTime(o, now) <= now && e.fireObject(o, now) {
			o.MarkDirty()
		}
	}
}

// fireObject writes every due '@' AP in o to its matching handler and
// reports whether anything was actually due by effective (back-off
// shadowed) fire time — the loop in fireDueTimers stops once nothing
// wants to fire right now, even though the AP's own @timestamp (and
// so the object's cached fire time) is unchanged.
func (e *Environment) fireObject(o *lcobject.Object, now int64) bool {
	fired := false
	for _, p := range o.Committed {
		if p.NextType != '@' {
			continue
		}
		if e.effectiveFire(p) > now {
			continue
		}

		sink, ok := e.handlers[p.ProgramName()]
		if ok {
			if err := sink.Fire(o.DN, p.Text); err != nil && e.log != nil {
				e.log.Errorf("handler write failed for %q: %v", o.DN, err)
			}
		}

		e.applyBackoff(p)
		messagebus.Fire.Send(e.Name, o.DN+" "+p.Text)
		fired = true
	}
	return fired
}

// effectiveFire returns the shadow re-fire time if the back-off
// schedule has pushed it later than the AP's own computed fire time.
func (e *Environment) effectiveFire(p *attribute.Program) int64 {
	if shadow, ok := e.shadowFire[p]; ok && shadow > p.Fire {
		return shadow
	}
	return p.Fire
}

// effectiveObjectFireTime mirrors Object.FireTime but folds every AP's
// back-off shadow time into the minimum, so the sort/deadline path
// never mistakes a '@' AP that already fired (without a directory
// round-trip refreshing its own Fire) for one still due right now.
// Unlike Object.FireTime this does not consult o's cache, since that
// cache only ever reflects raw AP fire times.
func (e *Environment) effectiveObjectFireTime(o *lcobject.Object, now int64) int64 {
	min := int64(attribute.MaxFireTime)
	for _, p := range o.Committed {
		if p.Dirty() {
			p.RecomputeFireTime(e.log, now)
		}
		if f := e.effectiveFire(p); f < min {
			min = f
		}
	}
	return min
}

// applyBackoff increments the miss counter and recomputes the shadow
// re-fire time per §4.8.3, without mutating the AP's own fire time —
// that belongs to the directory round-trip.
func (e *Environment) applyBackoff(p *attribute.Program) {
	missed := e.missed[p]
	if missed < 255 {
		missed++
	}
	e.missed[p] = missed

	exponent := uint(missed)
	if exponent > backoffCap {
		exponent = backoffCap
	}
	delay := int64(baseBackoffSeconds) << exponent
	if delay > maxBackoffSeconds {
		delay = maxBackoffSeconds
	}
	e.shadowFire[p] = p.Fire + delay
}
