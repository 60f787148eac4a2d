// Package chunk deterministically partitions narration text into
// synthesis-sized pieces.
package chunk

import (
	"fmt"
	"strings"
	"unicode"
)

// Splitting is a pure function of (text, maxChars). Identical inputs always
// produce an identical chunk list; cache keys and resumed generation both
// depend on this.

// Split partitions text into ordered, non-empty chunks of at most maxChars
// characters each. Within each window it prefers the last sentence-ending
// punctuation past half the window, then the last newline, then the last
// space, and hard-splits at maxChars only when no boundary qualifies.
// Chunks are trimmed; whitespace-only input yields zero chunks.
//
// maxChars must be positive; passing a non-positive value is a caller
// contract violation and panics.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		panic(fmt.Sprintf("chunk: maxChars must be positive, got %d", maxChars))
	}

	runes := []rune(text)
	var chunks []string

	pos := 0
	for pos < len(runes) {
		for pos < len(runes) && unicode.IsSpace(runes[pos]) {
			pos++
		}
		if pos >= len(runes) {
			break
		}

		if len(runes)-pos <= maxChars {
			if c := strings.TrimSpace(string(runes[pos:])); c != "" {
				chunks = append(chunks, c)
			}
			break
		}

		cut := splitPoint(runes[pos : pos+maxChars])
		if c := strings.TrimSpace(string(runes[pos : pos+cut])); c != "" {
			chunks = append(chunks, c)
		}
		pos += cut
	}

	return chunks
}

// Count returns the number of chunks Split would produce.
func Count(text string, maxChars int) int {
	return len(Split(text, maxChars))
}

// splitPoint picks the cut position within a full-size window. Always
// splits at a rune boundary, never mid-character.
func splitPoint(window []rune) int {
	threshold := len(window) / 2

	for i := len(window) - 1; i > threshold; i-- {
		if isSentenceEnd(window, i) {
			return i + 1
		}
	}
	for i := len(window) - 1; i > threshold; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i > threshold; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}

	// No acceptable boundary in the window; hard split.
	return len(window)
}

// isSentenceEnd reports whether position i ends a sentence: terminal
// punctuation followed by a space or newline.
func isSentenceEnd(window []rune, i int) bool {
	switch window[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 >= len(window) {
		// Punctuation at the window edge; the following character is
		// outside the window, so it cannot be confirmed as a boundary.
		return false
	}
	next := window[i+1]
	return next == ' ' || next == '\n' || next == '\t' || next == '\r'
}
