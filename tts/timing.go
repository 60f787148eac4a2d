package tts

import (
	"math"
	"strings"
)

// estimateEpsilonMs keeps estimated word intervals from overlapping their
// successor.
const estimateEpsilonMs = 1

// WordTimingsFromAlignment converts provider character-level alignment into
// chunk-relative word timings. Consecutive non-whitespace characters form a
// word; a word starts at its first character's start time and ends at its
// last character's end time. Whitespace terminates the current word and is
// not itself timed. Times are rounded, not truncated, to whole
// milliseconds so conversion does not drift across long chunks.
func WordTimingsFromAlignment(a *Alignment) []WordTiming {
	if a == nil || len(a.Chars) == 0 {
		return nil
	}

	var (
		timings []WordTiming
		word    strings.Builder
		startMs int64
		endMs   int64
	)

	flush := func() {
		if word.Len() == 0 {
			return
		}
		timings = append(timings, WordTiming{
			Word:    word.String(),
			StartMs: startMs,
			EndMs:   endMs,
		})
		word.Reset()
	}

	for i, ch := range a.Chars {
		if isWhitespaceChar(ch) {
			flush()
			continue
		}
		if word.Len() == 0 && i < len(a.StartSec) {
			startMs = secondsToMs(a.StartSec[i])
		}
		if i < len(a.EndSec) {
			endMs = secondsToMs(a.EndSec[i])
		}
		word.WriteString(ch)
	}
	// Trailing partial word at end of input.
	flush()

	return timings
}

// EstimateWordTimings distributes a chunk's duration uniformly across its
// words. This is the fallback for providers and voices that return no
// alignment, so highlighting accuracy is only approximate.
func EstimateWordTimings(text string, durationMs int64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 || durationMs <= 0 {
		return nil
	}

	slice := float64(durationMs) / float64(len(words))
	timings := make([]WordTiming, 0, len(words))

	for i, w := range words {
		start := int64(math.Round(float64(i) * slice))
		end := int64(math.Round(float64(i+1)*slice)) - estimateEpsilonMs
		if end < start {
			end = start
		}
		timings = append(timings, WordTiming{Word: w, StartMs: start, EndMs: end})
	}

	return timings
}

func secondsToMs(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

func isWhitespaceChar(ch string) bool {
	return strings.TrimSpace(ch) == ""
}
