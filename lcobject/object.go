// Package lcobject implements the lifecycle object: the per-DN
// collection of attribute-programs, transactionally staged across
// to-add, committed and to-del regions.
package lcobject

import (
	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/attribute"
)

// Object aggregates every attribute-program attached to a single
// distinguishedName. The three slices partition the AP set during a
// transaction: ToAdd holds newly staged APs (initially a copy of the
// committed view), Committed the last durable view, ToDel APs queued
// for removal on commit. Outside a transaction only Committed is
// populated.
type Object struct {
	DN        string
	Committed []*attribute.Program
	ToAdd     []*attribute.Program
	ToDel     []*attribute.Program

	fire int64 // cached earliest fire time across Committed; 0 == dirty
	Next *Object
}

// New creates an empty object for dn with its fire time dirty.
func New(dn string) *Object {
	return &Object{DN: dn}
}

// MarkDirty forces the next FireTime call to recompute.
func (o *Object) MarkDirty() {
	o.fire = 0
}

// Dirty reports whether the object's cached fire time needs recomputing.
func (o *Object) Dirty() bool {
	return o.fire == 0
}

// FireTime returns the earliest fire time across every committed AP,
// recomputing (and refreshing any dirty member AP) if the cache is
// stale. Per §4.3: set to MAX, iterate all APs refreshing dirty ones
// in place, then take the minimum.
func (o *Object) FireTime(log *logger.L, now int64) int64 {
	if !o.Dirty() {
		return o.fire
	}
	var min int64 = attribute.MaxFireTime
	for _, p := range o.Committed {
		if p.Dirty() {
			p.RecomputeFireTime(log, now)
		}
		if p.Fire < min {
			min = p.Fire
		}
	}
	o.fire = min
	return o.fire
}

// FindCommitted returns the committed AP with the given text, or nil.
func (o *Object) FindCommitted(text string) *attribute.Program {
	for _, p := range o.Committed {
		if p.Text == text {
			return p
		}
	}
	return nil
}

// FindStaged returns the staged (to-add) AP with the given text, or
// nil. Used by Add to detect duplicates within an open transaction.
func (o *Object) FindStaged(text string) *attribute.Program {
	for _, p := range o.ToAdd {
		if p.Text == text {
			return p
		}
	}
	return nil
}

// FindProgramByName returns the first committed AP whose program name
// equals name, used by the '?' wait advancement to locate the AP a
// wait step refers to.
func (o *Object) FindProgramByName(name string) *attribute.Program {
	for _, p := range o.Committed {
		if p.ProgramName() == name {
			return p
		}
	}
	return nil
}

// BeginTransaction seeds the to-add region from the committed view,
// per §4.7 Open: "to-add = first" (the staged view initially equals
// the committed view), to-del empty.
func (o *Object) BeginTransaction() {
	o.ToAdd = append([]*attribute.Program(nil), o.Committed...)
	o.ToDel = nil
}

// StageAdd appends a freshly constructed AP to the to-add region.
func (o *Object) StageAdd(p *attribute.Program) {
	o.ToAdd = append(o.ToAdd, p)
}

// StageDelete detaches p from the to-add region and moves it to the
// to-del region, per §4.7 Delete.
func (o *Object) StageDelete(p *attribute.Program) bool {
	for i, candidate := range o.ToAdd {
		if candidate == p {
			o.ToAdd = append(o.ToAdd[:i], o.ToAdd[i+1:]...)
			o.ToDel = append(o.ToDel, p)
			return true
		}
	}
	return false
}

// StageReset marks every currently staged AP for deletion, leaving
// to-add empty. On commit the object becomes empty and is reaped.
func (o *Object) StageReset() {
	o.ToDel = append(o.ToDel, o.ToAdd...)
	o.ToAdd = nil
}

// Commit installs the to-add region as the new committed view and
// discards to-del, clearing staging pointers. Returns true if the
// object is now empty and should be reaped by the caller.
func (o *Object) Commit() (empty bool) {
	o.Committed = o.ToAdd
	o.ToAdd = nil
	o.ToDel = nil
	o.MarkDirty()
	return len(o.Committed) == 0
}

// Rollback discards the to-add region, restoring the committed view
// as the only live content.
func (o *Object) Rollback() {
	o.ToAdd = nil
	o.ToDel = nil
}

// IsEmpty reports whether the object currently holds no committed APs.
func (o *Object) IsEmpty() bool {
	return len(o.Committed) == 0
}
