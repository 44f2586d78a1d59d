package grammar_test

import (
	"regexp"
	"testing"

	"github.com/orvelte/lifecycled/grammar"
)

var distinguishedNameTests = []struct {
	text  string
	valid bool
}{
	{"uid=bakker,dc=orvelte,dc=nep", true},
	{"uid=bakker", true},
	{"", false},
	{"uid=", false},
	{"=bakker", false},
	{"uid=bakker,dc=orvelte,", false},
}

func TestMatchesDistinguishedName(t *testing.T) {
	for i, item := range distinguishedNameTests {
		if got := grammar.MatchesDistinguishedName(item.text); got != item.valid {
			t.Errorf("%d: MatchesDistinguishedName(%q) -> %v  expected: %v", i, item.text, got, item.valid)
		}
	}
}

var lifecycleStateTests = []struct {
	text  string
	valid bool
}{
	{"x . go@ gone@", true},
	{"x go@3 . gone@", true},
	{"x . lc?fired", true},
	{"x count=3 . go@", true},
	{"x .", false},
	{"", false},
}

func TestMatchesLifecycleState(t *testing.T) {
	for i, item := range lifecycleStateTests {
		if got := grammar.MatchesLifecycleState(item.text); got != item.valid {
			t.Errorf("%d: MatchesLifecycleState(%q) -> %v  expected: %v", i, item.text, got, item.valid)
		}
	}
}

func TestOverrideGrammar(t *testing.T) {
	saved := regexp.MustCompile(`^always-matches$`)
	grammar.SetLifecycleStateGrammar(saved)
	defer grammar.SetLifecycleStateGrammar(regexp.MustCompile(`^[A-Za-z0-9_-]+(?: [^ ]+)* \. [^ ]+(?: [^ ]+)*$`))

	if !grammar.MatchesLifecycleState("always-matches") {
		t.Errorf("override grammar did not take effect")
	}
}
