// Package attribute implements the attribute-program (AP): the
// past/cursor/future sequential process encoded in a single
// lifecycleState value.
package attribute

import (
	"math"
	"strconv"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/wireattr"
)

// MaxFireTime is the dirty-free "never fires" sentinel. Zero is
// reserved as the dirty marker, so it can never be a live fire time.
const MaxFireTime = math.MaxInt64

// none marks an AP that will never advance or fire, e.g. because its
// text lacked the mandatory " . " cursor marker.
const none = 0

// Program is a single attribute-program: a cursor into a past/future
// sequence of timer, wait and variable steps.
type Program struct {
	Text     string // the full, validated lifecycleState value
	Cursor   int    // byte offset of the first future word
	NextType byte   // '@', '?', '=' or none
	Fire     int64  // 0 == dirty, else a concrete fire time or MaxFireTime
	Missed   uint8  // missed-fire counter; the worker's back-off keeps its own per-AP count and does not update it
}

// New builds a Program from validated text. dirty is true when the
// caller must recompute the parent object's fire time, which is the
// case whenever the text has a " . " cursor, whatever its next step.
func New(log *logger.L, text string) (p *Program, dirty bool) {
	p = &Program{Text: text}

	idx := strings.Index(text, " . ")
	if idx < 0 {
		if log != nil {
			log.Errorf("operational flaw: lifecycleState without internal dot: %q", text)
		}
		p.Cursor = len(text)
		p.NextType = none
		return p, false
	}

	p.Cursor = idx + 3
	p.NextType = wireattr.NextStepType(text[p.Cursor:])
	return p, true
}

// ProgramName returns the identifier at the front of the AP's text —
// the name by which other APs' '?' waits refer to this one.
func (p *Program) ProgramName() string {
	n := wireattr.IdentifierLength(p.Text)
	return p.Text[:n]
}

// NextWord returns the word starting at the cursor, up to the next
// space or end of string.
func (p *Program) NextWord() string {
	rest := p.Text[p.Cursor:]
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		return rest[:i]
	}
	return rest
}

// PastWords returns every whitespace-separated word strictly before
// the cursor, excluding the structural "." marker itself.
func (p *Program) PastWords() []string {
	past := strings.Fields(p.Text[:p.Cursor])
	out := make([]string, 0, len(past))
	for _, w := range past {
		if w == "." {
			continue
		}
		out = append(out, w)
	}
	return out
}

// MarkDirty sets the AP's fire time to the dirty sentinel.
func (p *Program) MarkDirty() {
	p.Fire = 0
}

// Dirty reports whether the AP's fire time needs recomputing.
func (p *Program) Dirty() bool {
	return p.Fire == 0
}

// RecomputeFireTime refreshes a dirty timer-step fire time following
// §4.2: a non-'@' next type always resolves to MaxFireTime; otherwise
// the digits (if any) following '@' in the next word are parsed, with
// a missing digit run or a parsed zero normalising to now, and an
// out-of-range value logged and left at MaxFireTime.
func (p *Program) RecomputeFireTime(log *logger.L, now int64) {
	if p.NextType != '@' {
		p.Fire = MaxFireTime
		return
	}

	word := p.NextWord()
	at := strings.IndexByte(word, '@')
	if at < 0 {
		p.Fire = MaxFireTime
		return
	}
	digits := word[at+1:]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		p.Fire = now
		return
	}
	value, err := strconv.ParseInt(digits[:end], 10, 64)
	if err != nil || value < 0 || value >= MaxFireTime {
		if log != nil {
			log.Errorf("timer value out of range in %q", p.Text)
		}
		p.Fire = MaxFireTime
		return
	}
	if value == 0 {
		p.Fire = now
		return
	}
	p.Fire = value
}

// AdvanceCursor moves the cursor past the current future word,
// reclassifies NextType and marks the fire time dirty. Used by the
// '?' advancement loop; firing a timer step does not move the cursor.
func (p *Program) AdvanceCursor() {
	rest := p.Text[p.Cursor:]
	i := strings.IndexByte(rest, ' ')
	if i < 0 {
		p.Cursor = len(p.Text)
	} else {
		p.Cursor += i + 1
	}
	if p.Cursor >= len(p.Text) {
		p.NextType = none
	} else {
		p.NextType = wireattr.NextStepType(p.Text[p.Cursor:])
	}
	p.MarkDirty()
}
