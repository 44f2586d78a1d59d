package environ

import (
	"strings"

	"github.com/orvelte/lifecycled/attribute"
	"github.com/orvelte/lifecycled/fault"
	"github.com/orvelte/lifecycled/grammar"
	"github.com/orvelte/lifecycled/lcobject"
	"github.com/orvelte/lifecycled/messagebus"
	"github.com/orvelte/lifecycled/wireattr"
)

// active reports whether a transaction is open on this environment.
func (e *Environment) active() bool {
	return e.cycle != nil
}

// OpenTransaction begins a transaction per §4.7 Open. Preconditions:
// not active, not aborted. Per §5, the mutex is acquired here and held
// continuously — across every subsequent Add/Delete/ResetTransaction/
// Prepare call on this environment — until Commit or Rollback releases
// it; those calls must not lock it again.
func (e *Environment) OpenTransaction() error {
	if e.active() {
		return fault.ErrAlreadyAborted // reopen attempted while active; treat as misuse
	}
	e.mu.Lock()
	if err := e.openLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	return nil
}

// ensureOpenLocked opens a transaction implicitly per §4.7 Add/Delete
// ("if inactive, opens implicitly"), locking e.mu only when a
// transaction isn't already active. When one is already active the
// mutex is already held from the call that opened it, so this is a
// no-op.
func (e *Environment) ensureOpenLocked() error {
	if e.active() {
		return nil
	}
	e.mu.Lock()
	if err := e.openLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	return nil
}

// openLocked seeds a fresh transaction. Caller holds e.mu.
func (e *Environment) openLocked() error {
	if e.active() {
		return fault.ErrAlreadyAborted // reopen attempted while active; treat as misuse
	}
	if e.aborted {
		return fault.ErrAlreadyAborted
	}
	e.cycle = e
	for _, o := range e.order {
		o.BeginTransaction()
	}
	return nil
}

// decodeValue validates a single DER-wrapped value against its
// grammar, enforcing no embedded NUL per §4.1.
func decodeValue(der []byte, validate func(string) bool) (string, error) {
	payload, err := wireattr.DecodeHeader(der)
	if err != nil {
		return "", err
	}
	text := string(payload)
	if strings.IndexByte(text, 0) >= 0 {
		return "", fault.ErrEmbeddedNul
	}
	if !validate(text) {
		return "", fault.ErrGrammarMismatch
	}
	return text, nil
}

// Add stages a new attribute-program under dn, per §4.7 Add. derDN and
// derAttr are length-prefixed DER-wrapped values. The mutex, acquired
// by ensureOpenLocked on first use, stays held on return — released
// only by a later Commit or Rollback.
func (e *Environment) Add(derDN, derAttr []byte) error {
	if err := e.ensureOpenLocked(); err != nil {
		return err
	}
	if e.aborted {
		// defensive: should e ever be both active and aborted,
		// finish tearing it down here.
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrAlreadyAborted
	}

	dn, err := decodeValue(derDN, grammar.MatchesDistinguishedName)
	if err != nil {
		e.abortLocked()
		e.mu.Unlock()
		return err
	}
	text, err := decodeValue(derAttr, grammar.MatchesLifecycleState)
	if err != nil {
		e.abortLocked()
		e.mu.Unlock()
		return err
	}

	o := e.findOrCreateObject(dn)
	if o.FindStaged(text) != nil {
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrDuplicateAttribute
	}

	p, dirty := attribute.New(e.log, text)
	o.StageAdd(p)
	if dirty {
		o.MarkDirty()
	}
	return nil
}

// Delete stages removal of an existing attribute-program, per §4.7
// Delete. Locking follows Add: held on return, released by Commit or
// Rollback.
func (e *Environment) Delete(derDN, derAttr []byte) error {
	if err := e.ensureOpenLocked(); err != nil {
		return err
	}
	if e.aborted {
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrAlreadyAborted
	}

	dn, err := decodeValue(derDN, grammar.MatchesDistinguishedName)
	if err != nil {
		e.abortLocked()
		e.mu.Unlock()
		return err
	}
	text, err := decodeValue(derAttr, grammar.MatchesLifecycleState)
	if err != nil {
		e.abortLocked()
		e.mu.Unlock()
		return err
	}

	o, ok := e.objects[dn]
	if !ok {
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrNotFoundObject
	}
	p := o.FindStaged(text)
	if p == nil {
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrMissingAttribute
	}
	o.StageDelete(p)
	return nil
}

// ResetTransaction marks every currently staged AP of every object
// for deletion, per §4.7 Reset. Requires an already-active
// transaction, so the mutex is already held by the caller's earlier
// Open/Add — this does not touch it.
func (e *Environment) ResetTransaction() error {
	if !e.active() {
		return fault.ErrTransactionNotActive
	}
	if e.aborted {
		e.abortLocked()
		e.mu.Unlock()
		return fault.ErrAlreadyAborted
	}
	for _, o := range e.order {
		o.StageReset()
	}
	return nil
}

// Prepare returns success iff the transaction is not aborted. It does
// not alter state, and (like ResetTransaction) relies on the mutex
// already being held by the transaction side when active.
func (e *Environment) Prepare() error {
	if e.aborted {
		return fault.ErrAlreadyAborted
	}
	return nil
}

// Commit walks the transaction cycle, installing each environment's
// staged APs as committed and clearing staging, per §4.7 Commit. Every
// member's mutex is already held (from its own Open/Add), so this only
// releases each one as it's processed — it never acquires one, since
// doing so would deadlock against the very lock this call is meant to
// release.
func (e *Environment) Commit() error {
	if e.aborted {
		e.aborted = false
		return fault.ErrAlreadyAborted
	}
	if !e.active() {
		return fault.ErrTransactionNotActive
	}

	member := e
	for {
		next := member.cycle
		member.commitMember()
		member.mu.Unlock()
		if next == e {
			break
		}
		member = next
	}
	return nil
}

// commitMember performs the per-environment commit work; the caller
// holds member.mu and is responsible for capturing member.cycle
// before calling this, since it is cleared here.
func (member *Environment) commitMember() {
	changed := make([]string, 0, len(member.order))
	reap := make([]*lcobject.Object, 0)
	for _, o := range member.order {
		changed = append(changed, o.DN)
		if empty := o.Commit(); empty {
			reap = append(reap, o)
		}
	}
	for _, o := range reap {
		member.removeObject(o)
	}
	member.cycle = nil
	member.cond.Broadcast()
	if len(changed) > 0 {
		messagebus.Commit.Send(member.Name, changed)
	}
}

// Rollback aborts the transaction, walking the cycle and discarding
// every environment's staged region, per §4.7 Rollback/break. If a
// transaction was active, e.mu was already held (from its own
// Open/Add) and is released here; if not, there was never a lock to
// release.
func (e *Environment) Rollback() {
	wasActive := e.active()
	e.abortLocked()
	if wasActive {
		e.mu.Unlock()
	}
}

// abortLocked performs the rollback walk. The caller holds e.mu for e
// itself (if e was active) and is responsible for releasing it; every
// other cycle member's mutex is already held from its own Open/Add, so
// this only releases those, never acquires them.
func (e *Environment) abortLocked() {
	if !e.active() {
		e.aborted = true
		return
	}

	member := e
	for {
		next := member.cycle
		member.breakMember()
		if member != e {
			member.mu.Unlock()
		}
		if next == e {
			break
		}
		member = next
	}
}

func (member *Environment) breakMember() {
	for _, o := range member.order {
		o.Rollback()
	}
	member.aborted = true
	member.cycle = nil
}

// Collaborate splices two transaction cycles into one, per §4.7
// Collaborate. Per §5 "the caller must hold both": both environments'
// mutexes are already held continuously from their own Open/Add, so
// this never locks either one — a second Lock from here would deadlock
// against the lock it's meant to be operating under. Whatever process
// opens multiple environments' transactions at once is responsible for
// doing so in the environments' stable creation-sequence order, to
// avoid the lock-order deadlock described in §5.
func Collaborate(env1, env2 *Environment) error {
	if env1.aborted || env2.aborted {
		// break whichever side is still active, releasing its mutex,
		// so no environment is left both active and aborted
		for _, member := range []*Environment{env1, env2} {
			wasActive := member.active()
			member.abortLocked()
			if wasActive {
				member.mu.Unlock()
			}
		}
		return fault.ErrAlreadyAborted
	}
	if !env1.active() || !env2.active() {
		return fault.ErrTransactionNotActive
	}

	one1, one2 := env1.cycle, env2.cycle
	two1, two2 := one1.cycle, one2.cycle
	one1.cycle = two2
	one2.cycle = two1
	return nil
}
