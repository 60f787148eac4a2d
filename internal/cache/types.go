// Package cache stores generated chunk audio across a fast in-memory
// tier and a persistent compressed disk tier.
package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrItemTooLarge is returned when a single entry exceeds a tier's
	// total capacity.
	ErrItemTooLarge = errors.New("cache: item exceeds cache capacity")
)

// Key builds the canonical cache key for one generated chunk.
func Key(articleID, voiceID string, index int) string {
	return articleID + "/" + voiceID + "/" + strconv.Itoa(index)
}

// entryPrefix is the key prefix shared by all chunks of one
// (article, voice) pair.
func entryPrefix(articleID, voiceID string) string {
	return articleID + "/" + voiceID + "/"
}

// parseIndex extracts the chunk index from a key carrying the given
// prefix.
func parseIndex(key, prefix string) (int, bool) {
	rest := strings.TrimPrefix(key, prefix)
	if rest == key || strings.Contains(rest, "/") {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Stats captures counters for one cache tier.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Size       int64
	Capacity   int64
	ItemCount  int64
	HitRate    float64
	LastAccess time.Time
}

func (s Stats) String() string {
	return fmt.Sprintf("items=%d size=%d/%d hits=%d misses=%d evictions=%d",
		s.ItemCount, s.Size, s.Capacity, s.Hits, s.Misses, s.Evictions)
}
