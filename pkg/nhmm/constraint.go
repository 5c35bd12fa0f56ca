package nhmm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Applicator deletes the transitions that violate a domain rule. Apply receives
// the transition layers and one constraint tag per sequence position, or no
// tags at all, and removes entries in place through the LayerSet. It runs once
// per Train call, before arc consistency.
type Applicator interface {
	Apply(ls *LayerSet, tags []string) error
}

// ApplicatorFunc adapts a function to the Applicator interface.
type ApplicatorFunc func(ls *LayerSet, tags []string) error

// Apply calls f(ls, tags).
func (f ApplicatorFunc) Apply(ls *LayerSet, tags []string) error { return f(ls, tags) }

// Unconstrained removes nothing.
type Unconstrained struct{}

// Apply does nothing.
func (Unconstrained) Apply(*LayerSet, []string) error { return nil }

// Chain applies each applicator in order with the same tags.
type Chain []Applicator

// Apply runs every applicator of c, stopping at the first error.
func (c Chain) Apply(ls *LayerSet, tags []string) error {
	for _, a := range c {
		if err := a.Apply(ls, tags); err != nil {
			return err
		}
	}
	return nil
}

// Wildcard is the tag that allows any symbol at its position.
const Wildcard = "*"

// SymbolFilter forbids symbols position by position. Allow is asked whether a
// symbol may appear at a position given that position's tag; empty tags and
// Wildcard allow everything. Position 0 is filtered on the rows of the first
// layer, position p on the edges of layer p-1.
type SymbolFilter struct {
	Allow func(pos int, tag, symbol string) (bool, error)
}

// Apply removes every symbol Allow rejects.
func (f SymbolFilter) Apply(ls *LayerSet, tags []string) error {
	for pos, tag := range tags {
		if tag == "" || tag == Wildcard {
			continue
		}
		var candidates []string
		if pos == 0 {
			candidates = ls.Layer(0).Previous()
		} else {
			candidates = ls.Layer(pos - 1).targets()
		}
		for _, sym := range candidates {
			ok, err := f.Allow(pos, tag, sym)
			if err != nil {
				return fmt.Errorf("position %d: %w", pos, err)
			}
			if ok {
				continue
			}
			if pos == 0 {
				ls.RemovePrevious(0, sym)
			} else {
				ls.RemoveNext(pos-1, sym)
			}
		}
	}
	return nil
}

// Pattern constrains each position with a tag: Wildcard (or empty) allows any
// symbol, "re:<expr>" allows symbols fully matching the regular expression,
// "a|b|c" allows any of the listed symbols, and anything else allows exactly
// that symbol. Matching is case-insensitive when FoldCase is set.
type Pattern struct {
	FoldCase bool
}

// Apply compiles the tags and removes every symbol that does not match.
func (p Pattern) Apply(ls *LayerSet, tags []string) error {
	matchers := make([]func(string) bool, len(tags))
	for pos, tag := range tags {
		m, err := p.compile(tag)
		if err != nil {
			return fmt.Errorf("position %d: %w", pos, err)
		}
		matchers[pos] = m
	}
	return SymbolFilter{Allow: func(pos int, _, sym string) (bool, error) {
		return matchers[pos](sym), nil
	}}.Apply(ls, tags)
}

func (p Pattern) compile(tag string) (func(string) bool, error) {
	if expr, ok := strings.CutPrefix(tag, "re:"); ok {
		if p.FoldCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", tag, err)
		}
		return re.MatchString, nil
	}
	alts := strings.Split(tag, "|")
	return func(sym string) bool {
		for _, a := range alts {
			if a == sym || (p.FoldCase && strings.EqualFold(a, sym)) {
				return true
			}
		}
		return false
	}, nil
}

// LetterCount constrains each position to symbols with exactly the number of
// letters given by its integer tag.
type LetterCount struct{}

// Apply removes every symbol whose letter count differs from its position's tag.
func (LetterCount) Apply(ls *LayerSet, tags []string) error {
	return countFilter(ls, tags, letters)
}

// SyllableCount constrains each position to symbols with the number of
// syllables given by its integer tag, using a vowel-group estimate for English.
type SyllableCount struct{}

// Apply removes every symbol whose estimated syllable count differs from its
// position's tag.
func (SyllableCount) Apply(ls *LayerSet, tags []string) error {
	return countFilter(ls, tags, Syllables)
}

func countFilter(ls *LayerSet, tags []string, count func(string) int) error {
	want := make([]int, len(tags))
	for pos, tag := range tags {
		if tag == "" || tag == Wildcard {
			continue
		}
		n, err := strconv.Atoi(tag)
		if err != nil || n < 0 {
			return fmt.Errorf("position %d: tag %q is not a non-negative count", pos, tag)
		}
		want[pos] = n
	}
	return SymbolFilter{Allow: func(pos int, _, sym string) (bool, error) {
		return count(sym) == want[pos], nil
	}}.Apply(ls, tags)
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// Syllables estimates the number of syllables of an English word by counting
// groups of consecutive vowels, discounting a trailing silent "e". Words with
// letters always count at least one syllable.
func Syllables(word string) int {
	w := strings.ToLower(word)
	n := 0
	inGroup := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !inGroup {
			n++
		}
		inGroup = v
	}
	if n > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		n--
	}
	if n == 0 && letters(w) > 0 {
		n = 1
	}
	return n
}

// NoRepeat forbids a symbol from directly following itself.
type NoRepeat struct{}

// Apply removes every edge whose previous and next symbols are equal.
func (NoRepeat) Apply(ls *LayerSet, _ []string) error {
	for k := range ls.Len() {
		for _, prev := range ls.Layer(k).Previous() {
			ls.RemoveEdge(k, prev, prev)
		}
	}
	return nil
}

// MaxRuneLength forbids symbols longer than N runes at every position.
type MaxRuneLength struct {
	N int
}

// Apply removes every symbol longer than m.N runes.
func (m MaxRuneLength) Apply(ls *LayerSet, _ []string) error {
	tags := make([]string, ls.Positions())
	for i := range tags {
		tags[i] = strconv.Itoa(m.N)
	}
	return SymbolFilter{Allow: func(_ int, _, sym string) (bool, error) {
		return utf8.RuneCountInString(sym) <= m.N, nil
	}}.Apply(ls, tags)
}
