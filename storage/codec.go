package storage

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/fraudlens/core"
)

// MUS serializers for the persisted records. Field order is the wire format;
// append new fields at the end of a record.
var (
	IDMUS              mus.Serializer[core.ID]              = idMUS{}
	ArticleMUS         mus.Serializer[core.Article]         = articleMUS{}
	QueryCacheEntryMUS mus.Serializer[core.QueryCacheEntry] = queryCacheEntryMUS{}
	CheckpointMUS      mus.Serializer[core.Checkpoint]      = checkpointMUS{}
)

// cursor threads the offset and first error through a sequence of Unmarshal calls.
type cursor struct {
	bs  []byte
	n   int
	err error
}

func (c *cursor) uint64() uint64 {
	if c.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) int64() int64 {
	if c.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) int() int {
	if c.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) length() int {
	l := c.int()
	if c.err == nil && (l < 0 || l > len(c.bs)-c.n) {
		c.err = ErrTruncatedData
		return 0
	}
	return l
}

func (c *cursor) string() string {
	if c.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) bool() bool {
	if c.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) float32() float32 {
	if c.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) float64() float64 {
	if c.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(c.bs[c.n:])
	c.n += n
	c.err = err
	return v
}

func (c *cursor) time() time.Time {
	if !c.bool() {
		return time.Time{}
	}
	micros := c.int64()
	if c.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

func (c *cursor) strings() []string {
	l := c.length()
	if c.err != nil || l == 0 {
		return nil
	}
	out := make([]string, l)
	for i := range out {
		out[i] = c.string()
	}
	return out
}

func (c *cursor) vector() []float32 {
	l := c.length()
	if c.err != nil || l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		out[i] = c.float32()
	}
	return out
}

// Marshal helpers. Each returns the number of bytes written.

func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return ord.Bool.Marshal(false, bs)
	}
	n := ord.Bool.Marshal(true, bs)
	return n + varint.Int64.Marshal(t.UnixMicro(), bs[n:])
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + varint.Int64.Size(t.UnixMicro())
}

func marshalStrings(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// skipWith sizes a decoded value to report how many bytes it occupied.
func skipWith[T any](s mus.Serializer[T], bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type idMUS struct{}

func (idMUS) Marshal(v core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idMUS) Size(v core.ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type articleMUS struct{}

func (articleMUS) Marshal(v core.Article, bs []byte) int {
	n := varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += marshalTime(v.PublishedAt, bs[n:])
	n += varint.Int.Marshal(int(v.Source), bs[n:])
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.NormalizedText, bs[n:])
	n += ord.String.Marshal(string(v.FraudType), bs[n:])
	n += marshalStrings(v.FraudTags, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.Bool.Marshal(v.Classified, bs[n:])
	n += marshalVector(v.Embedding, bs[n:])
	n += ord.Bool.Marshal(v.Prediction != nil, bs[n:])
	if v.Prediction != nil {
		n += ord.String.Marshal(string(v.Prediction.Category), bs[n:])
		n += raw.Float64.Marshal(v.Prediction.Confidence, bs[n:])
	}
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (articleMUS) Unmarshal(bs []byte) (core.Article, int, error) {
	c := &cursor{bs: bs}
	var v core.Article
	v.Id = core.ID(c.uint64())
	v.Title = c.string()
	v.PublishedAt = c.time()
	v.Source = core.Source(c.int())
	v.URL = c.string()
	v.Text = c.string()
	v.NormalizedText = c.string()
	v.FraudType = core.FraudType(c.string())
	v.FraudTags = c.strings()
	v.Summary = c.string()
	v.Classified = c.bool()
	v.Embedding = c.vector()
	if c.bool() {
		v.Prediction = &core.Prediction{
			Category:   core.FraudType(c.string()),
			Confidence: c.float64(),
		}
	}
	v.InsertedAt = c.time()
	v.UpdatedAt = c.time()
	if c.err != nil {
		return core.Article{}, c.n, c.err
	}
	return v, c.n, nil
}

func (articleMUS) Size(v core.Article) int {
	size := varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Title)
	size += sizeTime(v.PublishedAt)
	size += varint.Int.Size(int(v.Source))
	size += ord.String.Size(v.URL)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.NormalizedText)
	size += ord.String.Size(string(v.FraudType))
	size += sizeStrings(v.FraudTags)
	size += ord.String.Size(v.Summary)
	size += ord.Bool.Size(v.Classified)
	size += sizeVector(v.Embedding)
	size += ord.Bool.Size(v.Prediction != nil)
	if v.Prediction != nil {
		size += ord.String.Size(string(v.Prediction.Category))
		size += raw.Float64.Size(v.Prediction.Confidence)
	}
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

func (s articleMUS) Skip(bs []byte) (int, error) {
	return skipWith[core.Article](s, bs)
}

type queryCacheEntryMUS struct{}

func (queryCacheEntryMUS) Marshal(v core.QueryCacheEntry, bs []byte) int {
	n := ord.String.Marshal(v.Key, bs)
	n += marshalVector(v.Embedding, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (queryCacheEntryMUS) Unmarshal(bs []byte) (core.QueryCacheEntry, int, error) {
	c := &cursor{bs: bs}
	var v core.QueryCacheEntry
	v.Key = c.string()
	v.Embedding = c.vector()
	v.CreatedAt = c.time()
	if c.err != nil {
		return core.QueryCacheEntry{}, c.n, c.err
	}
	return v, c.n, nil
}

func (queryCacheEntryMUS) Size(v core.QueryCacheEntry) int {
	return ord.String.Size(v.Key) + sizeVector(v.Embedding) + sizeTime(v.CreatedAt)
}

func (s queryCacheEntryMUS) Skip(bs []byte) (int, error) {
	return skipWith[core.QueryCacheEntry](s, bs)
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v core.Checkpoint, bs []byte) int {
	n := ord.String.Marshal(v.ProcessorType, bs)
	n += varint.Uint64.Marshal(uint64(v.LastID), bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (core.Checkpoint, int, error) {
	c := &cursor{bs: bs}
	var v core.Checkpoint
	v.ProcessorType = c.string()
	v.LastID = core.ID(c.uint64())
	v.UpdatedAt = c.time()
	if c.err != nil {
		return core.Checkpoint{}, c.n, c.err
	}
	return v, c.n, nil
}

func (checkpointMUS) Size(v core.Checkpoint) int {
	return ord.String.Size(v.ProcessorType) + varint.Uint64.Size(uint64(v.LastID)) + sizeTime(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (int, error) {
	return skipWith[core.Checkpoint](s, bs)
}
