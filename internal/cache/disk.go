package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/listenlater/listenlater/tts"
)

// Disk is the persistent tier. Entries are gob-encoded chunk records,
// zstd-compressed when that saves space, one file per entry plus a gob
// index holding key metadata. The index survives restarts; a missing or
// corrupt entry file degrades to a miss.
type Disk struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu sync.RWMutex

	stats Stats
}

type diskEntry struct {
	Key        string
	FilePath   string
	Size       int64 // bytes on disk
	RawSize    int64 // bytes before compression
	Timestamp  time.Time
	LastAccess time.Time
	Hits       int64
	Compressed bool
}

// diskRecord is the serialized form of one cached chunk.
type diskRecord struct {
	ChunkIndex  int
	Audio       []byte
	WordTimings []tts.WordTiming
	DurationMs  int64
}

const indexFile = "chunks.index"

// compressFloor skips compression for entries too small to benefit.
const compressFloor = 1024

// NewDisk opens the disk tier rooted at basePath, creating it if
// needed. compressionLevel <= 0 disables compression.
func NewDisk(basePath string, capacity int64, compressionLevel int) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	d := &Disk{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		d.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
	}

	if err := d.loadIndex(); err != nil {
		// A broken index is not worth failing startup over.
		d.index = make(map[string]*diskEntry)
	}
	d.recalculateSize()

	return d, nil
}

// Get returns the chunk stored under key, if readable.
func (d *Disk) Get(key string) (*tts.ChunkAudio, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		d.dropEntry(key, entry)
		d.stats.Misses++
		return nil, false
	}

	if entry.Compressed && d.decoder != nil {
		data, err = d.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(entry.FilePath)
			d.dropEntry(key, entry)
			d.stats.Misses++
			return nil, false
		}
	}

	var rec diskRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		os.Remove(entry.FilePath)
		d.dropEntry(key, entry)
		d.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.Hits++
	d.stats.Hits++
	d.stats.LastAccess = entry.LastAccess

	return &tts.ChunkAudio{
		ChunkIndex:  rec.ChunkIndex,
		Audio:       rec.Audio,
		WordTimings: rec.WordTimings,
		DurationMs:  rec.DurationMs,
	}, true
}

// Put stores a chunk under key, replacing any existing entry whole.
func (d *Disk) Put(key string, audio *tts.ChunkAudio) error {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(diskRecord{
		ChunkIndex:  audio.ChunkIndex,
		Audio:       audio.Audio,
		WordTimings: audio.WordTimings,
		DurationMs:  audio.DurationMs,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	raw := buf.Bytes()

	data := raw
	compressed := false
	if d.encoder != nil && len(raw) > compressFloor {
		if c := d.encoder.EncodeAll(raw, nil); len(c) < len(raw) {
			data = c
			compressed = true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	diskSize := int64(len(data))
	if diskSize > d.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := d.index[key]; ok {
		os.Remove(existing.FilePath)
		d.dropEntry(key, existing)
	}

	for d.size+diskSize > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	path := d.entryPath(key)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	now := time.Now()
	d.index[key] = &diskEntry{
		Key:        key,
		FilePath:   path,
		Size:       diskSize,
		RawSize:    int64(len(raw)),
		Timestamp:  now,
		LastAccess: now,
		Compressed: compressed,
	}
	d.size += diskSize
	d.stats.Size = d.size
	d.stats.ItemCount = int64(len(d.index))
	return nil
}

// Delete removes the entry for key if present.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.index[key]; ok {
		os.Remove(entry.FilePath)
		d.dropEntry(key, entry)
	}
}

// Contains reports key presence without touching the entry.
func (d *Disk) Contains(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.index[key]
	return ok
}

// Keys returns every indexed key in no particular order.
func (d *Disk) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.index))
	for key := range d.index {
		keys = append(keys, key)
	}
	return keys
}

// Clear removes every entry and persists the empty index.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.index {
		os.Remove(entry.FilePath)
	}
	d.index = make(map[string]*diskEntry)
	d.size = 0
	d.stats.Size = 0
	d.stats.ItemCount = 0
	return d.saveIndex()
}

// Size returns the on-disk byte footprint.
func (d *Disk) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// Stats returns a snapshot of tier counters.
func (d *Disk) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := d.stats
	stats.Size = d.size
	stats.ItemCount = int64(len(d.index))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Close persists the index.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveIndex()
}

func (d *Disk) entryPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(d.basePath, hex.EncodeToString(hash[:16])+".chunk")
}

// dropEntry removes key from the index. Caller holds the lock and
// handles file removal.
func (d *Disk) dropEntry(key string, entry *diskEntry) {
	delete(d.index, key)
	d.size -= entry.Size
	d.stats.Size = d.size
	d.stats.ItemCount = int64(len(d.index))
}

// evictOldest removes the entry with the oldest last access. Caller
// holds the lock.
func (d *Disk) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range d.index {
		if oldestKey == "" || entry.LastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}
	entry := d.index[oldestKey]
	os.Remove(entry.FilePath)
	d.dropEntry(oldestKey, entry)
	d.stats.Evictions++
}

func (d *Disk) loadIndex() error {
	file, err := os.Open(filepath.Join(d.basePath, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&d.index)
}

func (d *Disk) saveIndex() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d.index); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(d.basePath, indexFile), buf.Bytes())
}

func (d *Disk) recalculateSize() {
	d.size = 0
	for _, entry := range d.index {
		d.size += entry.Size
	}
	d.stats.Size = d.size
	d.stats.ItemCount = int64(len(d.index))
}

// writeFileAtomic writes to a temp file then renames into place so a
// crash never leaves a torn entry.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}
