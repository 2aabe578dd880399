package textmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCorrectCount(t *testing.T) {
	cases := []struct {
		name      string
		reference string
		typed     string
		want      int
	}{
		{name: "empty input", reference: "type fast now", typed: "", want: 0},
		{name: "exact prefix", reference: "type fast now", typed: "type fa", want: 7},
		{name: "full text", reference: "type fast now", typed: "type fast now", want: 13},
		{name: "diverges at 2", reference: "type fast now", typed: "tyxe fast now", want: 2},
		{name: "later fix earns nothing", reference: "abcdef", typed: "abXdef", want: 2},
		{name: "longer than reference", reference: "ab", typed: "abc", want: 2},
		{name: "multibyte runes", reference: "héllo wörld", typed: "héllo wö", want: 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CorrectCount(tc.reference, tc.typed))
		})
	}
}

func TestExactPrefixIsFullyCorrect(t *testing.T) {
	ref := "the quick brown fox jumps"
	for i := 0; i <= len(ref); i++ {
		p := ref[:i]
		assert.Equal(t, len(p), CorrectCount(ref, p))
		assert.Equal(t, 100.0, Accuracy(CorrectCount(ref, p), TotalTyped(p)))
	}
}

func TestDivergenceIgnoresTail(t *testing.T) {
	ref := "the quick brown fox"
	for k := 0; k < len(ref); k++ {
		typed := ref[:k] + "#" + ref[k+1:]
		assert.Equal(t, k, CorrectCount(ref, typed), "divergence at %d", k)
	}
}

func TestWPM(t *testing.T) {
	assert.Equal(t, 0, WPM(50, 0))
	assert.Equal(t, 10, WPM(50, time.Minute))
	assert.Equal(t, 20, WPM(50, 30*time.Second))
	// 13 chars over 20s: 2.6 words / (1/3) min = 7.8
	assert.Equal(t, 8, WPM(13, 20*time.Second))
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 100.0, Accuracy(0, 0))
	assert.Equal(t, 50.0, Accuracy(5, 10))
	assert.InDelta(t, 66.67, Accuracy(2, 3), 0.01)
}

func TestCompletedWords(t *testing.T) {
	ref := "type fast now"
	assert.Equal(t, 0, CompletedWords(ref, 4))
	assert.Equal(t, 1, CompletedWords(ref, 5))
	assert.Equal(t, 1, CompletedWords(ref, 9))
	assert.Equal(t, 2, CompletedWords(ref, 10))
	assert.Equal(t, 2, CompletedWords(ref, 12))
	assert.Equal(t, 3, CompletedWords(ref, 13))
}

func TestProgressScenario(t *testing.T) {
	p := NewProgress("type fast now")
	for _, v := range []string{"t", "ty", "typ", "type", "type "} {
		p = p.Type(v)
	}
	assert.Equal(t, 1, p.WordIndex)
	assert.Equal(t, "", p.Input)

	for _, v := range []string{"f", "fa", "fas", "fast", "fast "} {
		p = p.Type(v)
	}
	assert.Equal(t, 10, p.Correct)
	assert.Equal(t, 10, p.Total)
	assert.Equal(t, 100.0, Accuracy(p.Correct, p.Total))
	assert.Equal(t, 2, p.WordIndex)
	assert.Equal(t, 2, p.Score())
	assert.False(t, p.Complete())
}

func TestProgressMismatchKeepsInput(t *testing.T) {
	p := NewProgress("type fast now").Type("tipe ")
	assert.Equal(t, 0, p.WordIndex)
	assert.Equal(t, "tipe ", p.Input)
	assert.Equal(t, 1, p.Correct)
	assert.Equal(t, 5, p.Total)

	p = p.Type("type ")
	assert.Equal(t, 1, p.WordIndex)
	assert.Equal(t, 5, p.Correct)
}

func TestProgressPaddedWordIsNotAccepted(t *testing.T) {
	p := NewProgress("type fast now").Type("  type ")
	assert.Equal(t, 0, p.WordIndex)
	assert.Equal(t, "  type ", p.Input)
	assert.Equal(t, 0, p.Correct)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, 0, p.Score())

	p = p.Type("type  ")
	assert.Equal(t, 0, p.WordIndex)
	assert.Equal(t, "type  ", p.Input)
	assert.Equal(t, 5, p.Correct)
	assert.Equal(t, 6, p.Total)
	assert.Equal(t, "type  ", p.TypedSoFar())

	p = p.Type("type ")
	assert.Equal(t, 1, p.WordIndex)
	assert.Equal(t, "", p.Input)
	assert.Equal(t, 5, p.Correct)
	assert.Equal(t, 1, p.Score())
}

func TestProgressCompletesOnLastWord(t *testing.T) {
	p := NewProgress("go now").Type("go ").Type("no").Type("now")
	assert.True(t, p.Complete())
	assert.Equal(t, 6, p.Correct)
	assert.Equal(t, 2, p.Score())

	after := p.Type("extra")
	assert.Equal(t, p, after)
}

func TestProgressTrailingSeparator(t *testing.T) {
	p := NewProgress("go ").Type("go ")
	assert.True(t, p.Complete())
	assert.Equal(t, 3, p.Correct)
}

func TestProgressIsPure(t *testing.T) {
	base := NewProgress("type fast now")
	a := base.Type("type ")
	b := base.Type("type ")
	assert.Equal(t, a, b)
	assert.Equal(t, 0, base.WordIndex)
}
