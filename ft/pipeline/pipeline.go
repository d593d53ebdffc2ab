// Package pipeline implements the fixed-window Interest pipeline: a PIT,
// a multi-producer request queue, and a single dispatcher goroutine that
// drains both, demultiplexes replies by PitToken, and retries or fails
// requests per a bounded retry policy.
//
// The concrete Face implementations in std/engine/face are asynchronous,
// push-callback transports (OnPacket registers a callback invoked from a
// reader goroutine), not the synchronous poll()-style transport described
// in the abstract design this package follows. The dispatcher adapts to
// that shape by fanning incoming frames through an internal channel fed
// from the Face's OnPacket callback, and draining that channel once per
// loop iteration in place of a blocking poll call; everything downstream
// (PIT lookup, retry, sentinel delivery) follows the original design
// unchanged.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/log"
	"github.com/named-data/ndnc/std/ndn"
	"github.com/named-data/ndnc/std/object/congestion"

	"github.com/named-data/ndnc/ft/codec"
)

// MaxRetry is the maximum number of times a single logical Interest may
// be sent on the wire, original attempt included.
const MaxRetry = 8

// tickInterval bounds how long the dispatcher can go between timeout
// scans when neither new frames nor new requests arrive, so deadlines
// are still honored promptly under an idle face.
const tickInterval = 10 * time.Millisecond

type logModule string

func (m logModule) String() string { return string(m) }

const logMod logModule = "ft-pipeline"

// Pipeline is the fixed-window Interest dispatcher. One Pipeline instance
// owns exactly one Face and one dedicated dispatcher goroutine.
type Pipeline struct {
	face   ndn.Face
	codec  Codec
	window congestion.CongestionWindow

	reqQueue *RequestQueue
	tokens   *TokenGenerator

	pit *PIT

	rx       chan []byte
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
	running  atomic.Bool

	// shutdownMu lets drainToFailure wait for every in-flight
	// EnqueueInterest call to finish checking stopped and (if it lost
	// the race) pushing, before taking the final drain of reqQueue.
	// EnqueueInterest holds it for reading; drainToFailure takes it
	// for writing once, after stopped is already true, so no Push can
	// land after the final drain runs.
	shutdownMu sync.RWMutex

	doneCh chan struct{}
}

// New constructs a Pipeline over face with the given fixed window size.
// It does not start the dispatcher; call Run for that.
func New(face ndn.Face, window int) *Pipeline {
	if window < 1 {
		window = 1
	}
	return &Pipeline{
		face:     face,
		codec:    codec.NewTLVCodec(),
		window:   congestion.NewFixedCongestionWindow(window),
		reqQueue: NewRequestQueue(),
		tokens:   NewTokenGenerator(),
		pit:      NewPIT(),
		rx:       make(chan []byte, window*2),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run starts the dispatcher on a dedicated goroutine. It registers the
// Face's packet callback and returns once that registration is in
// place; the dispatch loop itself runs asynchronously until End is
// called or the face reports a fatal error.
func (p *Pipeline) Run() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}

	p.face.OnPacket(func(frame []byte) {
		select {
		case p.rx <- frame:
		case <-p.stopCh:
		}
	})
	p.face.OnError(func(err error) {
		log.Error(logMod, "face error, shutting down pipeline", "err", err)
		p.End()
	})

	go p.dispatchLoop()
}

// IsValid reports whether the dispatcher is running and has not been
// shut down.
func (p *Pipeline) IsValid() bool {
	return p.running.Load() && !p.stopped.Load()
}

// EnqueueInterest stamps interest with a fresh PitToken, wire-encodes
// it, and pushes it to the request queue for the dispatcher to admit.
// It returns false only if the pipeline is shutting down. It never
// blocks on network I/O.
func (p *Pipeline) EnqueueInterest(interest *ndn.Interest, rx *RxQueue) bool {
	p.shutdownMu.RLock()
	defer p.shutdownMu.RUnlock()

	if p.stopped.Load() {
		return false
	}

	token := p.tokens.Next()
	wire, err := p.codec.EncodeInterestWithToken(interest, token)
	if err != nil {
		log.Error(logMod, "failed to encode interest", "err", err)
		return false
	}

	lifetimeMs := uint64(1000)
	if d, ok := interest.Config.Lifetime.Get(); ok {
		lifetimeMs = uint64(d / time.Millisecond)
	}

	p.reqQueue.Push(&PendingInterest{
		Wire:       wire,
		Token:      token,
		Name:       interest.NameV,
		LifetimeMs: lifetimeMs,
		Rx:         rx,
	})
	return true
}

// End signals shutdown, drains the face one last time, fails every live
// PIT entry's RxQueue, and discards whatever remains in the request
// queue. Calling End more than once has no additional effect.
func (p *Pipeline) End() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.stopCh)
		<-p.doneCh
	})
}

func (p *Pipeline) dispatchLoop() {
	defer close(p.doneCh)
	defer p.drainToFailure()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.drainRxNonBlocking()
			return
		case frame := <-p.rx:
			p.handleFrame(frame)
			p.drainRxNonBlocking()
		case <-p.reqQueue.Notify():
		case <-ticker.C:
		}

		p.runTimeouts(time.Now())
		p.admitAndSend()
	}
}

// drainRxNonBlocking consumes any additional frames already queued so a
// burst of replies is processed in one iteration instead of one per
// select wakeup.
func (p *Pipeline) drainRxNonBlocking() {
	for {
		select {
		case frame := <-p.rx:
			p.handleFrame(frame)
		default:
			return
		}
	}
}

func (p *Pipeline) handleFrame(frame []byte) {
	in, err := p.codec.DecodeIncoming(frame)
	if err != nil {
		log.Debug(logMod, "dropping malformed inbound frame", "err", err)
		return
	}

	switch in.Kind {
	case codec.IncomingData:
		p.onData(in)
	case codec.IncomingNack:
		p.onNack(in)
	}
}

func (p *Pipeline) onData(in *codec.Incoming) {
	entry, ok := p.pit.Get(in.Token)
	if !ok {
		log.Debug(logMod, "dropping data for unknown or retired token", "token", in.Token)
		return
	}
	p.pit.Remove(in.Token)
	p.window.HandleSignal(congestion.SignalOnTime)
	entry.Rx.push(Delivery{Data: in.Data})
}

func (p *Pipeline) onNack(in *codec.Incoming) {
	entry, ok := p.pit.Get(in.Token)
	if !ok {
		log.Debug(logMod, "dropping nack for unknown or retired token", "token", in.Token)
		return
	}

	if in.NackReason == ndn.NackReasonDuplicate {
		p.pit.Remove(in.Token)
		p.retry(entry, entry.NTimeout)
		return
	}

	p.pit.Remove(in.Token)
	p.window.HandleSignal(congestion.SignalCongestionMark)
	entry.Rx.push(Delivery{Err: errNack(in.NackReason)})
}

// runTimeouts pops and handles every PIT entry whose deadline has
// elapsed as of now.
func (p *Pipeline) runTimeouts(now time.Time) {
	for {
		entry, ok := p.pit.NextExpired(now)
		if !ok {
			return
		}

		if entry.NTimeout+1 < MaxRetry {
			p.retry(entry, entry.NTimeout+1)
			continue
		}

		p.window.HandleSignal(congestion.SignalLoss)
		entry.Rx.push(Delivery{Err: errTimeoutExhausted})
	}
}

// retry decodes the original Interest back out of entry's wire bytes,
// gives it a fresh nonce, re-encodes it under a new PitToken, and
// re-queues it with the given nTimeout and the same RxQueue handle.
func (p *Pipeline) retry(entry *PendingInterest, nTimeout int) {
	interest, err := p.codec.DecodeInterest(entry.Wire)
	if err != nil {
		log.Error(logMod, "failed to decode pending interest for retry", "err", err)
		entry.Rx.push(Delivery{Err: errTimeoutExhausted})
		return
	}
	interest.Config.Nonce = uint32(p.tokens.Next())

	token := p.tokens.Next()
	wire, err := p.codec.EncodeInterestWithToken(interest, token)
	if err != nil {
		log.Error(logMod, "failed to re-encode interest for retry", "err", err)
		entry.Rx.push(Delivery{Err: errTimeoutExhausted})
		return
	}

	p.reqQueue.Push(&PendingInterest{
		Wire:       wire,
		Token:      token,
		Name:       entry.Name,
		LifetimeMs: entry.LifetimeMs,
		NTimeout:   nTimeout,
		Rx:         entry.Rx,
	})
}

// rerollToken decodes pi's already-encoded wire, mints a fresh PitToken,
// and re-encodes it, so the on-wire PitToken always matches pi.Token.
// Used when a newly admitted request's token collides with one already
// in the PIT: re-rolling Token alone without this would leave the wire
// carrying the old, now-reused token, and the eventual reply would be
// dropped as belonging to an unknown entry.
func (p *Pipeline) rerollToken(pi *PendingInterest) error {
	interest, err := p.codec.DecodeInterest(pi.Wire)
	if err != nil {
		return err
	}

	token := p.tokens.Next()
	wire, err := p.codec.EncodeInterestWithToken(interest, token)
	if err != nil {
		return err
	}

	pi.Wire = wire
	pi.Token = token
	return nil
}

// admitAndSend drains as many pending requests as the window has slack
// for, stamps them expressed, inserts them into the PIT, and hands the
// batch to the face in one call.
func (p *Pipeline) admitAndSend() {
	slack := p.window.Size() - p.pit.Len()
	if slack <= 0 {
		return
	}

	batch := p.reqQueue.DrainUpTo(slack)
	if len(batch) == 0 {
		return
	}

	now := time.Now()
	wires := make(enc.Wire, 0, len(batch))
	for _, pi := range batch {
		pi.ExpressedAt = now
		pi.Deadline = now.Add(time.Duration(pi.LifetimeMs) * time.Millisecond)
		if err := p.pit.Insert(pi.Token, pi); err != nil {
			// Token collision: re-roll and re-encode so the on-wire
			// PitToken matches the new PIT key, then retry insertion
			// once more.
			if rerollErr := p.rerollToken(pi); rerollErr != nil {
				log.Error(logMod, "failed to re-encode interest after token collision", "err", rerollErr)
				pi.Rx.push(Delivery{Err: errTimeoutExhausted})
				continue
			}
			if err := p.pit.Insert(pi.Token, pi); err != nil {
				log.Error(logMod, "token collision persisted after reroll", "err", err)
				pi.Rx.push(Delivery{Err: errTimeoutExhausted})
				continue
			}
		}
		wires = append(wires, pi.Wire...)
	}

	if err := p.face.Send(wires); err != nil {
		log.Error(logMod, "face send failed, shutting down pipeline", "err", err)
		go p.End()
	}
}

// drainToFailure is run once the dispatcher loop exits: every
// still-live PIT entry and every not-yet-expressed request receives a
// failure sentinel so no worker blocks forever on its RxQueue.
func (p *Pipeline) drainToFailure() {
	for {
		entry, ok := p.pit.NextExpired(time.Now().Add(365 * 24 * time.Hour))
		if !ok {
			break
		}
		entry.Rx.push(Delivery{Err: errShutdown})
	}

	// stopped is already true by now (set before stopCh was closed).
	// Taking the exclusive lock here waits out any EnqueueInterest call
	// that is still mid-Push, so the drain below is guaranteed to see
	// everything that could possibly have been pushed; any call that
	// arrives after this Lock succeeds will observe stopped and bail
	// out without pushing, so nothing lands in the queue after us.
	p.shutdownMu.Lock()
	defer p.shutdownMu.Unlock()

	for {
		batch := p.reqQueue.DrainUpTo(1024)
		if len(batch) == 0 {
			return
		}
		for _, pi := range batch {
			pi.Rx.push(Delivery{Err: errShutdown})
		}
	}
}
