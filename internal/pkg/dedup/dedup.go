package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MitchCasey/ReviewPing/internal/pkg/cache"
)

// Deduper recognizes webhook deliveries that were already processed.
// CheckAndRecord returns true exactly once per fingerprint: the first caller
// records it and proceeds, later callers get false and drop the delivery.
// Forget removes a recorded fingerprint so a retry of work that failed after
// the record can get through.
type Deduper interface {
	CheckAndRecord(fingerprint string) bool
	Forget(fingerprint string)
}

// Default bounds for the in-memory store. The cap bounds memory, not
// correctness: the window it provides is best-effort and process-local, and
// clears on restart. The durable guard against double sends is the review
// request existence check in the processor.
const (
	DefaultCapacity     = 1000
	trimDivisor         = 2
	defaultRedisWindow  = 24 * time.Hour
	redisFingerprintKey = "webhook:fp:%s"
)

// Fingerprint hashes the stable parts of a webhook payload: the first event
// sequence plus the serialized events list. Unparseable payloads fall back
// to a hash of the whole body.
func Fingerprint(raw []byte) string {
	var envelope struct {
		Events             json.RawMessage `json:"events"`
		FirstEventSequence int64           `json:"firstEventSequence"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Events) > 0 {
		sum := sha256.Sum256(append([]byte(fmt.Sprintf("%d:", envelope.FirstEventSequence)), envelope.Events...))
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// memoryDeduper is a bounded insertion-ordered set. When the cap is
// exceeded, the oldest half is evicted.
type memoryDeduper struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewMemory creates a process-local deduper holding at most capacity
// fingerprints.
func NewMemory(capacity int) Deduper {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &memoryDeduper{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

func (d *memoryDeduper) CheckAndRecord(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[fingerprint]; ok {
		return false
	}

	d.seen[fingerprint] = struct{}{}
	d.order = append(d.order, fingerprint)

	if len(d.order) > d.capacity {
		keep := d.capacity / trimDivisor
		evict := d.order[:len(d.order)-keep]
		for _, fp := range evict {
			delete(d.seen, fp)
		}
		d.order = append([]string(nil), d.order[len(d.order)-keep:]...)
	}
	return true
}

func (d *memoryDeduper) Forget(fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[fingerprint]; !ok {
		return
	}
	delete(d.seen, fingerprint)
	for i, fp := range d.order {
		if fp == fingerprint {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// redisDeduper shares the dedup window across instances via SETNX with a
// TTL. Redis being unreachable degrades to "not seen": the processor's
// durable existence check still prevents double sends.
type redisDeduper struct {
	window time.Duration
}

// NewRedis creates a cache-backed deduper with the given window.
func NewRedis(window time.Duration) Deduper {
	if window <= 0 {
		window = defaultRedisWindow
	}
	return &redisDeduper{window: window}
}

func (d *redisDeduper) CheckAndRecord(fingerprint string) bool {
	stored, err := cache.SetNX(fmt.Sprintf(redisFingerprintKey, fingerprint), 1, d.window)
	if err != nil {
		return true
	}
	return stored
}

func (d *redisDeduper) Forget(fingerprint string) {
	cache.Delete(fmt.Sprintf(redisFingerprintKey, fingerprint))
}
