package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Default matching rules of DefaultTokenizer. A word is a run of letters,
// marks and digits that may contain inner apostrophes or hyphens ("don't",
// "well-known"), so constraint tags see whole words. Sentence punctuation is
// a token of its own.
const (
	DefaultWordPattern = `\p{L}[\p{L}\p{M}\p{N}]*(?:['-][\p{L}\p{M}\p{N}]+)*|\p{N}+|[.,!?;:]`
	DefaultEOCPattern  = `^[.!?]$`
	// DefaultAttached lists the tokens rendered without a separator before
	// them.
	DefaultAttached = ".,!?;:"
)

// apostrophes folds typographic apostrophes to ASCII before matching, so
// "don’t" and "don't" are the same symbol.
var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// DefaultTokenizer splits text into words and punctuation with regular
// expressions and treats sentence-ending punctuation as end-of-chain tokens.
type DefaultTokenizer struct {
	separator string
	eoc       string
	lowercase bool
	word      *regexp.Regexp
	end       *regexp.Regexp
	attached  map[string]struct{}
}

// Option configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator sets the string used to join tokens when rendering.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) { t.separator = sep }
}

// WithEOC sets the string that closes a rendered sentence whose last token is
// not attached punctuation. Default: "."
func WithEOC(eoc string) Option {
	return func(t *DefaultTokenizer) { t.eoc = eoc }
}

// WithLowercase folds every token to lower case while tokenizing, which makes
// literal constraint tags match regardless of capitalisation in the corpus.
func WithLowercase(lower bool) Option {
	return func(t *DefaultTokenizer) { t.lowercase = lower }
}

// WithSeparatorRegex replaces the pattern that finds tokens in a line.
func WithSeparatorRegex(pattern string) Option {
	return func(t *DefaultTokenizer) { t.word = regexp.MustCompile(pattern) }
}

// WithEOCRegex replaces the pattern that marks a token as end-of-chain.
func WithEOCRegex(pattern string) Option {
	return func(t *DefaultTokenizer) { t.end = regexp.MustCompile(pattern) }
}

// WithAttached sets the single-character tokens rendered without a separator
// before them and without the EOC string after them.
func WithAttached(chars string) Option {
	return func(t *DefaultTokenizer) { t.attached = charSet(chars) }
}

func charSet(chars string) map[string]struct{} {
	set := make(map[string]struct{}, len(chars))
	for _, r := range chars {
		set[string(r)] = struct{}{}
	}
	return set
}

// NewDefaultTokenizer creates a tokenizer with default settings, overridden by
// any opts.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		eoc:       ".",
		word:      regexp.MustCompile(DefaultWordPattern),
		end:       regexp.MustCompile(DefaultEOCPattern),
		attached:  charSet(DefaultAttached),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Separator returns the configured separator, or "" before attached
// punctuation.
func (t *DefaultTokenizer) Separator(_, next string) string {
	if _, ok := t.attached[next]; ok {
		return ""
	}
	return t.separator
}

// EOC returns the configured end-of-chain string, or "" after attached
// punctuation.
func (t *DefaultTokenizer) EOC(last string) string {
	if _, ok := t.attached[last]; ok {
		return ""
	}
	return t.eoc
}

// tokens returns the normalised tokens of one line.
func (t *DefaultTokenizer) tokens(line string) []string {
	found := t.word.FindAllString(apostrophes.Replace(line), -1)
	if t.lowercase {
		for i, w := range found {
			found[i] = strings.ToLower(w)
		}
	}
	return found
}

// NewStream returns a stream over r.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return &defaultStream{
		scanner:   bufio.NewScanner(r),
		tokenizer: t,
	}
}

// defaultStream reads r line by line and hands out the tokens of each line.
type defaultStream struct {
	scanner   *bufio.Scanner
	tokenizer *DefaultTokenizer
	pending   []string
}

// Next returns the next token, or io.EOF once the input is exhausted.
func (s *defaultStream) Next() (*Token, error) {
	for len(s.pending) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.pending = s.tokenizer.tokens(s.scanner.Text())
	}

	word := s.pending[0]
	s.pending = s.pending[1:]
	return &Token{Text: word, EOC: s.tokenizer.end.MatchString(word)}, nil
}
