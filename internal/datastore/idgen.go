package datastore

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out ids for new records.
type IDGenerator interface {
	NextID() int64
}

// MonotonicGenerator issues Unix millisecond ids, bumping by one when two
// calls land in the same millisecond so ids never repeat within a process.
type MonotonicGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMonotonicGenerator returns a generator using now as its clock; nil means time.Now.
func NewMonotonicGenerator(now func() time.Time) *MonotonicGenerator {
	if now == nil {
		now = time.Now
	}
	return &MonotonicGenerator{now: now}
}

func (g *MonotonicGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// maxSafeInteger keeps ids exact in JavaScript and other float64 JSON clients
const maxSafeInteger = 1<<53 - 1

// UUIDGenerator derives 53-bit positive ids from random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() int64 {
	for {
		u := uuid.New()
		id := int64(binary.BigEndian.Uint64(u[:8]) & maxSafeInteger)
		if id != 0 {
			return id
		}
	}
}

// SequenceGenerator returns start, start+1, ... and is meant for tests.
type SequenceGenerator struct {
	next atomic.Int64
}

// NewSequenceGenerator returns a generator whose first id is start.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.next.Store(start)
	return g
}

func (g *SequenceGenerator) NextID() int64 {
	return g.next.Add(1) - 1
}

// NewIDGenerator builds the generator named in settings.
func NewIDGenerator(kind string) (IDGenerator, error) {
	switch kind {
	case "", "monotonic":
		return NewMonotonicGenerator(nil), nil
	case "uuid":
		return UUIDGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown id generator %q", kind)
	}
}
