package textmetrics

import "strings"

// Progress is the word cursor over a reference text. It is a value type;
// Type returns the next Progress without touching the receiver.
type Progress struct {
	Reference string   `json:"-"`
	words     []string // cached Words(Reference)
	WordIndex int      `json:"word_index"`
	Input     string   `json:"input"`
	Correct   int      `json:"correct"`
	Total     int      `json:"total"`
}

// NewProgress starts a cursor at the first word.
func NewProgress(reference string) Progress {
	return Progress{Reference: reference, words: Words(reference)}
}

// WordCount is the number of words in the reference text.
func (p Progress) WordCount() int {
	return len(p.wordList())
}

// CurrentWord is the word the cursor expects next, or "" when complete.
func (p Progress) CurrentWord() string {
	words := p.wordList()
	if p.WordIndex >= len(words) {
		return ""
	}
	return words[p.WordIndex]
}

// Confirmed is the text of every word already accepted, including the
// separator that follows the last of them.
func (p Progress) Confirmed() string {
	if p.WordIndex == 0 {
		return ""
	}
	return strings.Join(p.wordList()[:p.WordIndex], Separator) + Separator
}

// TypedSoFar is the confirmed words plus the in-progress input.
func (p Progress) TypedSoFar() string {
	return p.Confirmed() + p.Input
}

// Complete reports whether the whole reference text has been typed.
func (p Progress) Complete() bool {
	return p.WordIndex >= p.WordCount()
}

// Score is the number of words completed inside the correct prefix.
func (p Progress) Score() int {
	return CompletedWords(p.Reference, p.Correct)
}

// Type applies a new value of the current-word input field. Counters are
// computed from the combined text before any word is accepted. A value ending
// in the separator whose text before it is exactly the expected word advances the
// cursor and clears the input; a mismatch keeps the input for correction. The
// final word is also accepted without a separator once the full reference
// text has been typed.
func (p Progress) Type(value string) Progress {
	next := p
	next.words = p.wordList()
	if next.Complete() {
		return next
	}

	typed := next.Confirmed() + value
	next.Input = value
	next.Total = TotalTyped(typed)
	next.Correct = CorrectCount(next.Reference, typed)

	expected := next.CurrentWord()
	switch {
	case strings.HasSuffix(value, Separator) && strings.TrimSuffix(value, Separator) == expected:
		next.WordIndex++
		next.Input = ""
	case next.WordIndex == len(next.words)-1 && value == expected:
		next.WordIndex++
		next.Input = ""
	}
	// A reference ending in the separator leaves an empty final word.
	if next.WordIndex == len(next.words)-1 && next.words[next.WordIndex] == "" && next.Input == "" {
		next.WordIndex++
	}
	return next
}

func (p Progress) wordList() []string {
	if p.words == nil {
		return Words(p.Reference)
	}
	return p.words
}
