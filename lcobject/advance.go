package lcobject

import (
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/wireattr"
)

// AdvanceProgram repeatedly advances a single AP past satisfied '?'
// wait steps, per §4.5 "Per-AP advance". It returns whether anything
// was advanced.
func (o *Object) AdvanceProgram(log *logger.L, idx int) bool {
	p := o.Committed[idx]
	advanced := false

	for p.NextType == '?' {
		word := p.NextWord()
		q := strings.IndexByte(word, '?')
		lcname := word[:q]
		event := strings.TrimSuffix(word[q+1:], "?")

		satisfied := true
		target := o.FindProgramByName(lcname)
		if target == nil {
			if log != nil {
				log.Warnf("wait step %q refers to unknown program %q", word, lcname)
			}
		} else {
			satisfied = false
			for _, past := range target.PastWords() {
				if id := wireattr.IdentifierLength(past); past[:id] == event {
					satisfied = true
					break
				}
			}
		}

		if !satisfied {
			break
		}

		p.AdvanceCursor()
		advanced = true

		if p.NextType == '@' || p.NextType == '=' || p.NextType == 0 {
			break
		}
	}

	return advanced
}

// AdvanceAll repeats AdvanceProgram across every committed AP until a
// full pass changes nothing, per §4.5 "Per-object advance": one AP's
// advance may newly expose a past event for another AP's wait.
// Cross-object advancement is never performed by this method. This
// runs against the live committed view, not a staged transaction —
// the worker calls it outside any transaction (§4.8.2).
func (o *Object) AdvanceAll(log *logger.L) {
	for {
		changed := false
		for i := range o.Committed {
			if o.AdvanceProgram(log, i) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
