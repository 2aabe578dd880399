// Package textmetrics scores typing input against a reference text.
//
// Every function here is pure: the same inputs always give the same outputs,
// and nothing reads a clock. Lengths are counted in runes.
package textmetrics

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Separator ends a word.
const Separator = " "

// CharsPerWord is the conventional word length used for words-per-minute.
const CharsPerWord = 5

// Words splits the reference text on the separator. Consecutive separators
// yield empty words so word offsets stay aligned with character offsets.
func Words(reference string) []string {
	return strings.Split(reference, Separator)
}

// CorrectCount is the length of the longest prefix of typed that matches
// reference character for character. The scan stops at the first mismatch, so
// characters after it never earn credit.
func CorrectCount(reference, typed string) int {
	n := 0
	for len(typed) > 0 && len(reference) > 0 {
		tr, tw := utf8.DecodeRuneInString(typed)
		rr, rw := utf8.DecodeRuneInString(reference)
		if tr != rr {
			break
		}
		n++
		typed = typed[tw:]
		reference = reference[rw:]
	}
	return n
}

// TotalTyped is the number of characters typed so far.
func TotalTyped(typed string) int {
	return utf8.RuneCountInString(typed)
}

// WPM is (correct / CharsPerWord) / elapsed minutes, rounded to the nearest
// integer. A non-positive elapsed time yields zero.
func WPM(correct int, elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / CharsPerWord / elapsed.Minutes()))
}

// Accuracy is 100 * correct / total, or 100 when nothing was typed.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 100
	}
	return 100 * float64(correct) / float64(total)
}

// CompletedWords counts the reference words that lie wholly inside a correct
// prefix of the given length. A word counts once its trailing separator is
// also inside the prefix, or when it ends the text.
func CompletedWords(reference string, correct int) int {
	total := utf8.RuneCountInString(reference)
	done := 0
	offset := 0
	for _, w := range Words(reference) {
		end := offset + utf8.RuneCountInString(w)
		if end > correct {
			break
		}
		if end < total && end+1 > correct {
			break
		}
		done++
		offset = end + 1
	}
	return done
}
