package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/listenlater/listenlater/tts"
)

// Memory is the in-memory tier holding decoded chunk audio with LRU
// eviction. Size accounting tracks the audio bytes plus a fixed
// allowance per word timing.
type Memory struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu sync.RWMutex

	stats Stats
}

type memoryEntry struct {
	key       string
	audio     *tts.ChunkAudio
	size      int64
	timestamp time.Time
	hits      int64
}

const wordTimingBytes = 32 // approximate in-memory cost per timing

// NewMemory creates an in-memory tier capped at capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

func entrySize(audio *tts.ChunkAudio) int64 {
	return int64(len(audio.Audio)) + int64(len(audio.WordTimings))*wordTimingBytes
}

// Get returns the entry for key, marking it most recently used.
func (m *Memory) Get(key string) (*tts.ChunkAudio, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}

	m.eviction.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry)
	entry.hits++

	m.stats.Hits++
	m.stats.LastAccess = time.Now()
	return entry.audio, true
}

// Put stores the entry for key, evicting least recently used entries
// as needed.
func (m *Memory) Put(key string, audio *tts.ChunkAudio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newSize := entrySize(audio)

	if elem, ok := m.items[key]; ok {
		m.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		m.size += newSize - entry.size
		entry.audio = audio
		entry.size = newSize
		entry.timestamp = time.Now()
		m.stats.Size = m.size
		return nil
	}

	if newSize > m.capacity {
		return ErrItemTooLarge
	}

	for m.size+newSize > m.capacity && m.eviction.Len() > 0 {
		m.evictOldest()
	}

	elem := m.eviction.PushFront(&memoryEntry{
		key:       key,
		audio:     audio,
		size:      newSize,
		timestamp: time.Now(),
	})
	m.items[key] = elem
	m.size += newSize
	m.stats.Size = m.size
	return nil
}

// Delete removes the entry for key if present.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.eviction.Init()
	m.size = 0
	m.stats.Size = 0
}

// Keys returns every stored key in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	return keys
}

// Contains reports key presence without touching LRU order.
func (m *Memory) Contains(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.items[key]
	return ok
}

// Size returns the current byte footprint.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Stats returns a snapshot of tier counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.Size = m.size
	stats.ItemCount = int64(len(m.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// evictOldest removes the least recently used entry. Caller holds the
// lock.
func (m *Memory) evictOldest() {
	elem := m.eviction.Back()
	if elem != nil {
		m.removeElement(elem)
		m.stats.Evictions++
	}
}

func (m *Memory) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(m.items, entry.key)
	m.size -= entry.size
}
