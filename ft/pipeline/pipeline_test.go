package pipeline_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/ndn"
	"github.com/named-data/ndnc/std/types/optional"

	"github.com/named-data/ndnc/ft/codec"
	"github.com/named-data/ndnc/ft/pipeline"
)

func mustName(t *testing.T, s string) enc.Name {
	n, err := enc.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func newInterest(t *testing.T, name string, lifetime time.Duration) *ndn.Interest {
	i := &ndn.Interest{NameV: mustName(t, name)}
	i.Config.Lifetime = optional.Some(lifetime)
	return i
}

// sentToken recovers the PitToken the pipeline stamped onto a sent
// Interest frame, without depending on pipeline internals.
func sentToken(t *testing.T, c *codec.TLVCodec, w enc.Wire) uint64 {
	token, err := c.ExtractPitToken(w)
	require.NoError(t, err)
	return token
}

func TestHappyPathSingleWorker(t *testing.T) {
	face := newMockFace()
	p := pipeline.New(face, 64)
	p.Run()
	defer p.End()

	rx := pipeline.NewRxQueue(1)
	interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", time.Second)
	require.True(t, p.EnqueueInterest(interest, rx))

	require.Eventually(t, func() bool { return face.sentCount() == 1 }, time.Second, time.Millisecond)

	c := codec.NewTLVCodec()
	sentWire := face.sentWires()[0]
	token := sentToken(t, c, sentWire)

	reply := c.EncodeData(interest.NameV, []byte("hello"), token)
	face.deliver(reply.Join())

	d := rx.Recv()
	require.False(t, d.Failed())
	require.Equal(t, interest.NameV.String(), d.Data.Name().String())
}

func TestDuplicateNackTriggersRetryWithNewToken(t *testing.T) {
	face := newMockFace()
	p := pipeline.New(face, 4)
	p.Run()
	defer p.End()

	rx := pipeline.NewRxQueue(1)
	interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", time.Second)
	require.True(t, p.EnqueueInterest(interest, rx))

	require.Eventually(t, func() bool { return face.sentCount() == 1 }, time.Second, time.Millisecond)

	c := codec.NewTLVCodec()
	firstToken := sentToken(t, c, face.sentWires()[0])
	face.deliver(c.EncodeNack(interest, ndn.NackReasonDuplicate, firstToken).Join())

	require.Eventually(t, func() bool { return face.sentCount() == 2 }, time.Second, time.Millisecond)

	secondToken := sentToken(t, c, face.sentWires()[1])
	require.NotEqual(t, firstToken, secondToken)

	face.deliver(c.EncodeData(interest.NameV, []byte("v2"), secondToken).Join())

	d := rx.Recv()
	require.False(t, d.Failed())
}

func TestPermanentNackFailsImmediately(t *testing.T) {
	face := newMockFace()
	p := pipeline.New(face, 4)
	p.Run()
	defer p.End()

	rx := pipeline.NewRxQueue(1)
	interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", time.Second)
	require.True(t, p.EnqueueInterest(interest, rx))
	require.Eventually(t, func() bool { return face.sentCount() == 1 }, time.Second, time.Millisecond)

	c := codec.NewTLVCodec()
	token := sentToken(t, c, face.sentWires()[0])
	face.deliver(c.EncodeNack(interest, ndn.NackReasonNoRoute, token).Join())

	d := rx.Recv()
	require.True(t, d.Failed())
	require.Equal(t, 1, face.sentCount(), "no route nack must not retry")
}

func TestWindowSaturationNeverExceedsW(t *testing.T) {
	const window = 8
	const n = 40

	face := newMockFace()
	c := codec.NewTLVCodec()

	// Every reply removed from the PIT has been delivered first, so
	// sent - delivered never exceeds the live PIT size.
	var sent, delivered, maxInFlight atomic.Int64
	face.sendHook = func(w enc.Wire) error {
		token := sentToken(t, c, w)
		inFlight := sent.Add(1) - delivered.Load()
		for m := maxInFlight.Load(); inFlight > m && !maxInFlight.CompareAndSwap(m, inFlight); m = maxInFlight.Load() {
		}
		go func() {
			time.Sleep(2 * time.Millisecond)
			delivered.Add(1)
			face.deliver(c.EncodeData(mustName(t, "/ndnc/ft/file/35=v0/seg=0"), []byte("x"), token).Join())
		}()
		return nil
	}

	p := pipeline.New(face, window)
	p.Run()
	defer p.End()

	rx := pipeline.NewRxQueue(n)
	for i := 0; i < n; i++ {
		interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", 500*time.Millisecond)
		require.True(t, p.EnqueueInterest(interest, rx))
	}

	for i := 0; i < n; i++ {
		d := rx.Recv()
		require.False(t, d.Failed())
	}
	require.LessOrEqual(t, maxInFlight.Load(), int64(window))
}

func TestTimeoutRetriesThenFails(t *testing.T) {
	face := newMockFace() // sendHook unset: every Interest is silently dropped

	p := pipeline.New(face, 4)
	p.Run()
	defer p.End()

	rx := pipeline.NewRxQueue(1)
	interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", 15*time.Millisecond)
	require.True(t, p.EnqueueInterest(interest, rx))

	d := rx.Recv()
	require.True(t, d.Failed())
	require.Equal(t, pipeline.MaxRetry, face.sentCount(),
		"a permanently-dropped interest must be sent exactly MaxRetry times")
}

func TestShutdownMidFlightFailsOutstanding(t *testing.T) {
	face := newMockFace()
	p := pipeline.New(face, 64)
	p.Run()

	rx := pipeline.NewRxQueue(8)
	for i := 0; i < 8; i++ {
		interest := newInterest(t, "/ndnc/ft/file/35=v0/seg=0", time.Minute)
		require.True(t, p.EnqueueInterest(interest, rx))
	}

	require.Eventually(t, func() bool { return face.sentCount() == 8 }, time.Second, time.Millisecond)

	p.End()

	for i := 0; i < 8; i++ {
		d := rx.Recv()
		require.True(t, d.Failed())
	}

	require.False(t, p.EnqueueInterest(newInterest(t, "/ndnc/ft/file/35=v0/seg=1", time.Second), rx))
}
