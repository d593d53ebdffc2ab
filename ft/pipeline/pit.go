package pipeline

import (
	"errors"
	"time"

	enc "github.com/named-data/ndnc/std/encoding"
)

// ErrDuplicateToken is returned by PIT.Insert when the token is already
// present.
var ErrDuplicateToken = errors.New("pit: duplicate token")

// PendingInterest is a snapshot of one in-flight (or not-yet-expressed)
// request. A PendingInterest lives in exactly one place at a time:
// RequestQueue (ExpressedAt is zero) or PIT (ExpressedAt is set).
type PendingInterest struct {
	Wire       enc.Wire
	Token      uint64
	Name       enc.Name
	LifetimeMs uint64
	ExpressedAt time.Time
	Deadline    time.Time
	NTimeout    int
	Rx          *RxQueue
}

// deadlineQueue is a FIFO of tokens in expression order, used to
// approximate ascending deadline order. Lifetimes are per Interest: FIFO
// order is exactly deadline order only while all live entries carry the
// same lifetime; otherwise an entry is not found expired before the
// entries ahead of it in the queue.
type deadlineQueue struct {
	tokens []uint64
	head   int
}

func (q *deadlineQueue) pushBack(token uint64) {
	q.tokens = append(q.tokens, token)
}

func (q *deadlineQueue) pushFront(token uint64) {
	if q.head > 0 {
		q.head--
		q.tokens[q.head] = token
		return
	}
	q.tokens = append([]uint64{token}, q.tokens...)
}

func (q *deadlineQueue) popFront() (uint64, bool) {
	if q.head >= len(q.tokens) {
		q.tokens = q.tokens[:0]
		q.head = 0
		return 0, false
	}
	token := q.tokens[q.head]
	q.head++
	q.compact()
	return token, true
}

// compact reclaims the discarded prefix once it dominates the live
// suffix, keeping the backing array from growing without bound under
// sustained tombstone traffic.
func (q *deadlineQueue) compact() {
	if q.head > 256 && q.head*2 > len(q.tokens) {
		rest := len(q.tokens) - q.head
		copy(q.tokens, q.tokens[q.head:])
		q.tokens = q.tokens[:rest]
		q.head = 0
	}
}

// PIT is the Pending Interest Table: a token -> PendingInterest mapping
// plus a deadline-ordered FIFO of tokens. All mutation is confined to
// the dispatcher goroutine, so no internal lock is required.
type PIT struct {
	entries   map[uint64]*PendingInterest
	deadlines deadlineQueue
}

// NewPIT constructs an empty PIT.
func NewPIT() *PIT {
	return &PIT{entries: make(map[uint64]*PendingInterest)}
}

// Insert adds entry under token, failing if the token is already live.
func (p *PIT) Insert(token uint64, entry *PendingInterest) error {
	if _, ok := p.entries[token]; ok {
		return ErrDuplicateToken
	}
	p.entries[token] = entry
	p.deadlines.pushBack(token)
	return nil
}

// Get returns the live entry for token, if any.
func (p *PIT) Get(token uint64) (*PendingInterest, bool) {
	e, ok := p.entries[token]
	return e, ok
}

// Remove deletes the entry for token, if present. Its deadline-queue
// slot becomes a tombstone, discarded lazily on the next scan.
func (p *PIT) Remove(token uint64) {
	delete(p.entries, token)
}

// Len returns the number of live entries.
func (p *PIT) Len() int {
	return len(p.entries)
}

// IsFull reports whether the PIT holds w or more live entries.
func (p *PIT) IsFull(w int) bool {
	return p.Len() >= w
}

// NextExpired pops and returns the oldest live entry whose deadline is
// at or before now, skipping and discarding tombstones along the way.
// It returns ok=false once the deadline queue is empty or its head has
// not yet expired; entries behind an unexpired head are not examined.
func (p *PIT) NextExpired(now time.Time) (*PendingInterest, bool) {
	for {
		token, ok := p.deadlines.popFront()
		if !ok {
			return nil, false
		}

		entry, live := p.entries[token]
		if !live {
			continue // tombstone: already satisfied or retried
		}

		if entry.Deadline.After(now) {
			p.deadlines.pushFront(token)
			return nil, false
		}

		delete(p.entries, token)
		return entry, true
	}
}
