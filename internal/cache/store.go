package cache

import (
	"sort"

	"github.com/charmbracelet/log"

	"github.com/listenlater/listenlater/tts"
)

// Store combines the memory and disk tiers behind the chunk store
// contract. Reads check memory first and promote disk hits; writes go
// to both tiers. All failures degrade to cache misses so synthesis can
// always regenerate.
type Store struct {
	memory *Memory
	disk   *Disk // nil when persistence is disabled
	logger *log.Logger
}

// StoreConfig sizes the two tiers.
type StoreConfig struct {
	MemoryBytes      int64
	DiskBytes        int64
	DiskPath         string
	CompressionLevel int
}

// NewStore opens a two-tier store. A disk tier that fails to open is
// logged and skipped rather than failing construction.
func NewStore(cfg StoreConfig) *Store {
	logger := log.WithPrefix("cache")

	s := &Store{
		memory: NewMemory(cfg.MemoryBytes),
		logger: logger,
	}

	if cfg.DiskBytes > 0 && cfg.DiskPath != "" {
		disk, err := NewDisk(cfg.DiskPath, cfg.DiskBytes, cfg.CompressionLevel)
		if err != nil {
			logger.Warn("disk cache unavailable, running memory-only",
				"path", cfg.DiskPath, "error", err)
		} else {
			s.disk = disk
		}
	}

	return s
}

// Get returns the cached audio for (article, voice, index), if any.
func (s *Store) Get(articleID, voiceID string, index int) (*tts.ChunkAudio, bool) {
	key := Key(articleID, voiceID, index)

	if audio, ok := s.memory.Get(key); ok {
		return audio, true
	}

	if s.disk != nil {
		if audio, ok := s.disk.Get(key); ok {
			// Promote to the memory tier for subsequent reads.
			if err := s.memory.Put(key, audio); err != nil {
				s.logger.Debug("memory promotion skipped", "key", key, "error", err)
			}
			return audio, true
		}
	}

	return nil, false
}

// Put stores the audio for (article, voice, index) in both tiers.
func (s *Store) Put(articleID, voiceID string, index int, audio *tts.ChunkAudio) error {
	key := Key(articleID, voiceID, index)

	if err := s.memory.Put(key, audio); err != nil {
		s.logger.Warn("memory cache put failed", "key", key, "error", err)
	}
	if s.disk != nil {
		if err := s.disk.Put(key, audio); err != nil {
			s.logger.Warn("disk cache put failed", "key", key, "error", err)
			return err
		}
	}
	return nil
}

// GeneratedIndices returns the sorted chunk indices stored for
// (article, voice) across both tiers.
func (s *Store) GeneratedIndices(articleID, voiceID string) []int {
	prefix := entryPrefix(articleID, voiceID)
	seen := make(map[int]struct{})

	for _, key := range s.memory.Keys() {
		if idx, ok := parseIndex(key, prefix); ok {
			seen[idx] = struct{}{}
		}
	}
	if s.disk != nil {
		for _, key := range s.disk.Keys() {
			if idx, ok := parseIndex(key, prefix); ok {
				seen[idx] = struct{}{}
			}
		}
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// MemoryStats returns counters for the memory tier.
func (s *Store) MemoryStats() Stats {
	return s.memory.Stats()
}

// DiskStats returns counters for the disk tier and whether one exists.
func (s *Store) DiskStats() (Stats, bool) {
	if s.disk == nil {
		return Stats{}, false
	}
	return s.disk.Stats(), true
}

// Clear drops every entry from both tiers.
func (s *Store) Clear() error {
	s.memory.Clear()
	if s.disk != nil {
		return s.disk.Clear()
	}
	return nil
}

// Close persists the disk index.
func (s *Store) Close() error {
	if s.disk != nil {
		return s.disk.Close()
	}
	return nil
}

var _ tts.ChunkStore = (*Store)(nil)
