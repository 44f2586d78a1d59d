// Package grammar holds the two extended-regex grammars that validate
// distinguishedName and lifecycleState attribute values. Both grammars
// are compiled lazily on first use and live for the process lifetime,
// but tests may override either with SetDistinguishedNameGrammar or
// SetLifecycleStateGrammar before first use to exercise edge cases
// without forking the package.
package grammar

import (
	"regexp"
	"strings"
	"sync"
)

// a single past step, before the cursor: "event@timestamp",
// "lcname?event" or "var=value", with the timestamp or value present.
const donePattern = `[A-Za-z0-9_-]+(?:@[0-9]+|\?[A-Za-z0-9_-]+|=[^ ]+)`

// a single future step, after the cursor: the same three shapes, whose
// timestamp or value may be empty, each optionally carrying a trailing
// '?'.
const stepPattern = `[A-Za-z0-9_-]+(?:@[0-9]*\??|\?[A-Za-z0-9_-]+\??|=[^ ]*\??)`

// the step right after the cursor ("next") is mandatory — a
// terminated program with nothing left to do is not a valid
// lifecycleState value — but that step's own value/timestamp may be
// empty (stepPattern already allows that).
const lifecycleStatePattern = `^[A-Za-z0-9_-]+(?: ` + donePattern + `)* \. ` + stepPattern + `(?: ` + stepPattern + `)*$`

const distinguishedNamePattern = `^[A-Za-z][A-Za-z0-9]*=[^,=]+(?:,[A-Za-z][A-Za-z0-9]*=[^,=]+)*$`

var (
	once sync.Once

	mu                      sync.Mutex
	distinguishedNameRegexp *regexp.Regexp
	lifecycleStateRegexp    *regexp.Regexp
)

func compileDefaults() {
	mu.Lock()
	defer mu.Unlock()
	if distinguishedNameRegexp == nil {
		distinguishedNameRegexp = regexp.MustCompile(distinguishedNamePattern)
	}
	if lifecycleStateRegexp == nil {
		lifecycleStateRegexp = regexp.MustCompile(lifecycleStatePattern)
	}
}

// SetDistinguishedNameGrammar overrides the distinguishedName grammar.
// Intended for tests only; must be called before the first validation.
func SetDistinguishedNameGrammar(re *regexp.Regexp) {
	mu.Lock()
	defer mu.Unlock()
	distinguishedNameRegexp = re
}

// SetLifecycleStateGrammar overrides the lifecycleState grammar.
// Intended for tests only; must be called before the first validation.
func SetLifecycleStateGrammar(re *regexp.Regexp) {
	mu.Lock()
	defer mu.Unlock()
	lifecycleStateRegexp = re
}

// MatchesDistinguishedName reports whether text is a well-formed,
// NUL-clean distinguishedName.
func MatchesDistinguishedName(text string) bool {
	if strings.IndexByte(text, 0) >= 0 {
		return false
	}
	once.Do(compileDefaults)
	mu.Lock()
	re := distinguishedNameRegexp
	mu.Unlock()
	return re.MatchString(text)
}

// MatchesLifecycleState reports whether text is a well-formed,
// NUL-clean lifecycleState.
func MatchesLifecycleState(text string) bool {
	if strings.IndexByte(text, 0) >= 0 {
		return false
	}
	once.Do(compileDefaults)
	mu.Lock()
	re := lifecycleStateRegexp
	mu.Unlock()
	return re.MatchString(text)
}
