package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/fraudlens/core"
)

// Key prefixes for different data types.
// No prefix may be a prefix of another.
const (
	articlePrefix     = "art:"
	articleDatePrefix = "artdate:"
	cachePrefix       = "qcache:"
	checkpointPrefix  = "chkpt:"
)

// makeArticleKey generates a key for an article by ID.
// Format: prefix + BigEndian(id), so prefix scans run in ID order.
func makeArticleKey(id core.ID) []byte {
	buf := make([]byte, len(articlePrefix)+8)
	offset := copy(buf, articlePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// articleIDFromKey extracts the ID from an article key.
func articleIDFromKey(key []byte) (core.ID, bool) {
	if len(key) != len(articlePrefix)+8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(articlePrefix):])), true
}

// makeArticleDateKey generates a composite key for the publication date index.
// Format: prefix:timestamp:id
func makeArticleDateKey(published time.Time, id core.ID) []byte {
	buf := make([]byte, len(articleDatePrefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, articleDatePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(published.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialArticleDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialArticleDateKey(published time.Time) []byte {
	buf := make([]byte, len(articleDatePrefix)+8)
	offset := copy(buf, articleDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(published.UnixMicro()))
	return buf
}

// makeCacheKey generates a key for a query cache entry.
func makeCacheKey(key string) []byte {
	return []byte(cachePrefix + key)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s%s", checkpointPrefix, processorType))
}
