package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newEntry(token uint64, deadline time.Time) *PendingInterest {
	return &PendingInterest{Token: token, Deadline: deadline}
}

func TestPITInsertDuplicate(t *testing.T) {
	p := NewPIT()
	require.NoError(t, p.Insert(1, newEntry(1, time.Now())))
	require.ErrorIs(t, p.Insert(1, newEntry(1, time.Now())), ErrDuplicateToken)
	require.Equal(t, 1, p.Len())
}

func TestPITGetRemove(t *testing.T) {
	p := NewPIT()
	e := newEntry(7, time.Now())
	require.NoError(t, p.Insert(7, e))

	got, ok := p.Get(7)
	require.True(t, ok)
	require.Same(t, e, got)

	p.Remove(7)
	_, ok = p.Get(7)
	require.False(t, ok)
	require.Equal(t, 0, p.Len())
}

func TestPITIsFull(t *testing.T) {
	p := NewPIT()
	require.False(t, p.IsFull(2))
	require.NoError(t, p.Insert(1, newEntry(1, time.Now())))
	require.False(t, p.IsFull(2))
	require.NoError(t, p.Insert(2, newEntry(2, time.Now())))
	require.True(t, p.IsFull(2))
}

func TestPITNextExpiredOrdering(t *testing.T) {
	p := NewPIT()
	now := time.Now()

	require.NoError(t, p.Insert(1, newEntry(1, now.Add(-2*time.Second))))
	require.NoError(t, p.Insert(2, newEntry(2, now.Add(-1*time.Second))))
	require.NoError(t, p.Insert(3, newEntry(3, now.Add(time.Hour))))

	e, ok := p.NextExpired(now)
	require.True(t, ok)
	require.EqualValues(t, 1, e.Token)

	e, ok = p.NextExpired(now)
	require.True(t, ok)
	require.EqualValues(t, 2, e.Token)

	_, ok = p.NextExpired(now)
	require.False(t, ok)
	require.Equal(t, 1, p.Len())
}

func TestPITNextExpiredSkipsTombstones(t *testing.T) {
	p := NewPIT()
	now := time.Now()

	require.NoError(t, p.Insert(1, newEntry(1, now.Add(-time.Second))))
	require.NoError(t, p.Insert(2, newEntry(2, now.Add(-time.Second))))

	// Out-of-order removal (as onData would do) leaves a tombstone in
	// the deadline queue for token 1.
	p.Remove(1)

	e, ok := p.NextExpired(now)
	require.True(t, ok)
	require.EqualValues(t, 2, e.Token)

	_, ok = p.NextExpired(now)
	require.False(t, ok)
}
