package markov

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestVocabLookup(t *testing.T) {
	ctx, s, _ := setupTestDBWithTraining(t)

	id, err := s.VocabStr(ctx, "fish")
	if err != nil {
		t.Fatalf("VocabStr('fish') failed: %v", err)
	}
	if id == StartTokenID || id == EndTokenID {
		t.Errorf("expected a non-reserved ID for 'fish', got %d", id)
	}

	text, err := s.VocabInt(ctx, id)
	if err != nil {
		t.Fatalf("VocabInt(%d) failed: %v", id, err)
	}
	if text != "fish" {
		t.Errorf("expected 'fish', got '%s'", text)
	}

	if text, _ = s.VocabInt(ctx, EndTokenID); text != EndTokenText {
		t.Errorf("expected reserved text %q, got %q", EndTokenText, text)
	}
}

func TestGetNextTokens(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	// "one fish" is followed by "two" in the training data.
	oneId, _ := s.VocabStr(ctx, "one")
	fishId, _ := s.VocabStr(ctx, "fish")
	twoId, _ := s.VocabStr(ctx, "two")

	tokens, totalFreq, err := s.GetNextTokens(ctx, modelInfo, PrefixKey(oneId, fishId))
	if err != nil {
		t.Fatalf("GetNextTokens failed: %v", err)
	}
	if totalFreq != 1 {
		t.Errorf("expected total frequency of 1, got %d", totalFreq)
	}
	expectedTokens := []ChainToken{{Id: twoId, Freq: 1}}
	if !reflect.DeepEqual(tokens, expectedTokens) {
		t.Errorf("expected tokens %+v, got %+v", expectedTokens, tokens)
	}

	tokens, totalFreq, err = s.GetNextTokens(ctx, modelInfo, "999 998")
	if err != nil {
		t.Fatalf("GetNextTokens for unseen prefix failed: %v", err)
	}
	if len(tokens) != 0 || totalFreq != 0 {
		t.Error("expected no tokens for an unseen prefix")
	}
}

func drain(t *testing.T, tok Tokenizer, text string) []Token {
	t.Helper()
	stream := tok.NewStream(strings.NewReader(text))
	var out []Token
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		out = append(out, *token)
	}
}

func TestDefaultTokenizer(t *testing.T) {
	testCases := []struct {
		name string
		tok  *DefaultTokenizer
		text string
		want []Token
	}{
		{
			name: "words and punctuation",
			tok:  NewDefaultTokenizer(),
			text: "Hello, world! It's me.",
			want: []Token{
				{Text: "Hello"}, {Text: ","}, {Text: "world"}, {Text: "!", EOC: true},
				{Text: "It's"}, {Text: "me"}, {Text: ".", EOC: true},
			},
		},
		{
			name: "multiple lines",
			tok:  NewDefaultTokenizer(),
			text: "one\n\ntwo",
			want: []Token{{Text: "one"}, {Text: "two"}},
		},
		{
			name: "lowercase",
			tok:  NewDefaultTokenizer(WithLowercase(true)),
			text: "The Cat.",
			want: []Token{{Text: "the"}, {Text: "cat"}, {Text: ".", EOC: true}},
		},
		{
			name: "inner apostrophes and hyphens",
			tok:  NewDefaultTokenizer(),
			text: "Don’t stop, well-known café-goers: 'tis 42 - done!",
			want: []Token{
				{Text: "Don't"}, {Text: "stop"}, {Text: ","}, {Text: "well-known"}, {Text: "café-goers"},
				{Text: ":"}, {Text: "tis"}, {Text: "42"}, {Text: "done"}, {Text: "!", EOC: true},
			},
		},
		{
			name: "lowercase folds apostrophes too",
			tok:  NewDefaultTokenizer(WithLowercase(true)),
			text: "IT’S Über",
			want: []Token{{Text: "it's"}, {Text: "über"}},
		},
		{
			name: "custom regexes",
			tok:  NewDefaultTokenizer(WithSeparatorRegex(`[^|]+|\|`), WithEOCRegex(`^\|$`)),
			text: "a b|c",
			want: []Token{{Text: "a b"}, {Text: "|", EOC: true}, {Text: "c"}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := drain(t, tc.tok, tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	testCases := []struct {
		name  string
		tok   Tokenizer
		words []string
		want  string
	}{
		{name: "empty", tok: NewDefaultTokenizer(), words: nil, want: ""},
		{name: "plain", tok: NewDefaultTokenizer(), words: []string{"the", "dog", "ran"}, want: "the dog ran."},
		{name: "punctuation", tok: NewDefaultTokenizer(), words: []string{"well", ",", "yes", "!"}, want: "well, yes!"},
		{name: "custom", tok: NewDefaultTokenizer(WithSeparator("-"), WithEOC("")), words: []string{"a", "b"}, want: "a-b"},
		{name: "colon attached", tok: NewDefaultTokenizer(), words: []string{"note", ":", "fish"}, want: "note: fish."},
		{name: "custom attached", tok: NewDefaultTokenizer(WithAttached("|")), words: []string{"a", "|", "b", ","}, want: "a| b ,."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Join(tc.tok, tc.words); got != tc.want {
				t.Errorf("Join() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrefixKey(t *testing.T) {
	if got := PrefixKey(0, 12, 3); got != "0 12 3" {
		t.Errorf("PrefixKey() = %q", got)
	}
	if got := PrefixKey(); got != "" {
		t.Errorf("PrefixKey() with no ids = %q", got)
	}
}

func TestSplit(t *testing.T) {
	words, err := Split(NewDefaultTokenizer(WithLowercase(true)), "The dog, it ran. Again!")
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	want := []string{"the", "dog", ",", "it", "ran", "again"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("Split() = %v, want %v", words, want)
	}
}
