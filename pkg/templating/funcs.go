package templating

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

// maxSentences caps the sentences one call to "sentences" may draw.
const maxSentences = 1000

var errNoModel = errors.New("templating: no model bound")

// funcMap returns the template functions bound to src. A nil src yields
// functions fit only for parsing.
func funcMap(src *Source) template.FuncMap {
	b := binding{src: src}
	return template.FuncMap{
		"sentence":      b.sentence,
		"sentences":     b.sentences,
		"words":         b.words,
		"probability":   b.probability,
		"solutionCount": b.solutionCount,
		"removed":       b.removed,
		"length":        b.length,
		"randomChoice":  b.randomChoice,
		"randomInt":     b.randomInt,

		"repeat":     repeat,
		"list":       list,
		"join":       join,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"capitalize": capitalize,
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"inc":        func(i int) int { return i + 1 },
	}
}

type binding struct {
	src *Source
}

func (b binding) model() (*nhmm.Model, error) {
	if b.src == nil || b.src.Model == nil {
		return nil, errNoModel
	}
	return b.src.Model, nil
}

func (b binding) generateOptions() []nhmm.GenerateOption {
	if b.src.Rand == nil {
		return nil
	}
	return []nhmm.GenerateOption{nhmm.WithRand(b.src.Rand)}
}

func (b binding) text(words []string) string {
	if b.src.Tokenizer == nil {
		return strings.Join(words, " ")
	}
	return markov.Join(b.src.Tokenizer, words)
}

func (b binding) words() ([]string, error) {
	m, err := b.model()
	if err != nil {
		return nil, err
	}
	return m.Generate(b.generateOptions()...)
}

func (b binding) sentence() (string, error) {
	words, err := b.words()
	if err != nil {
		return "", err
	}
	return b.text(words), nil
}

func (b binding) sentences(n int) ([]string, error) {
	if n < 0 || n > maxSentences {
		return nil, fmt.Errorf("sentences: count %d out of range [0, %d]", n, maxSentences)
	}
	m, err := b.model()
	if err != nil {
		return nil, err
	}
	seqs, err := m.GenerateN(n, b.generateOptions()...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(seqs))
	for i, seq := range seqs {
		out[i] = b.text(seq)
	}
	return out, nil
}

func (b binding) probability(text string) (float64, error) {
	m, err := b.model()
	if err != nil {
		return 0, err
	}
	words := strings.Fields(text)
	if b.src.Tokenizer != nil {
		if words, err = markov.Split(b.src.Tokenizer, text); err != nil {
			return 0, err
		}
	}
	return m.Probability(words)
}

func (b binding) solutionCount() (string, error) {
	m, err := b.model()
	if err != nil {
		return "", err
	}
	n, err := m.SolutionCount()
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

func (b binding) removed(pos int) (string, error) {
	m, err := b.model()
	if err != nil {
		return "", err
	}
	sym, _ := m.SampleRemovedByConstraint(pos, b.src.Rand)
	return sym, nil
}

func (b binding) length() (int, error) {
	m, err := b.model()
	if err != nil {
		return 0, err
	}
	return m.SentenceLength(), nil
}

func (b binding) intN(n int) int {
	if b.src != nil && b.src.Rand != nil {
		return b.src.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// randomChoice returns a random element of a slice, or nil for an empty one.
func (b binding) randomChoice(slice any) any {
	val := reflect.ValueOf(slice)
	if val.Kind() != reflect.Slice || val.Len() == 0 {
		return nil
	}
	return val.Index(b.intN(val.Len())).Interface()
}

// randomInt returns a random integer in [lo, hi).
func (b binding) randomInt(lo, hi int) int {
	if lo >= hi {
		return lo
	}
	return lo + b.intN(hi-lo)
}

// repeat returns 0..count-1, for ranging a fixed number of times.
func repeat(count int) []int {
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s
}

func list(args ...any) []any {
	return args
}

func join(sep string, elems []string) string {
	return strings.Join(elems, sep)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
