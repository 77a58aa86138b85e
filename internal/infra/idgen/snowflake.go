package idgen

import (
	"fmt"
	"sync"
	"time"
)

const (
	nodeBits     = 10
	sequenceBits = 12
	maxNode      = -1 ^ (-1 << nodeBits)
	maxSequence  = -1 ^ (-1 << sequenceBits)

	// epochMillis is 2024-01-01T00:00:00Z.
	epochMillis = 1704067200000
)

// Snowflake generates 63-bit time-ordered identifiers:
// 41 bits of milliseconds since the epoch, 10 bits of node id, 12 bits of
// per-millisecond sequence.
type Snowflake struct {
	mu       sync.Mutex
	node     int64
	lastTime int64
	sequence int64
	now      func() time.Time
}

// NewSnowflake constructs a generator for the given node id.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 || node > maxNode {
		return nil, fmt.Errorf("node id must be in [0, %d]", maxNode)
	}
	return &Snowflake{
		node: node,
		now:  time.Now,
	}, nil
}

// NextID returns the next identifier. It blocks for up to one millisecond when
// the per-millisecond sequence is exhausted.
func (s *Snowflake) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts < s.lastTime {
		// Clock went backwards; wait it out rather than risking duplicates.
		ts = s.lastTime
	}

	if ts == s.lastTime {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for ts <= s.lastTime {
				ts = s.now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastTime = ts

	return (ts-epochMillis)<<(nodeBits+sequenceBits) | s.node<<sequenceBits | s.sequence
}
