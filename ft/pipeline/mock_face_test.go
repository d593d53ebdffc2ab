package pipeline_test

import (
	"fmt"
	"sync"

	enc "github.com/named-data/ndnc/std/encoding"
)

// mockFace is a scriptable ndn.Face for dispatcher tests, modeled on
// std/engine/face's DummyFace: Send captures outgoing wires instead of
// touching a real socket, and frames are injected back in by calling the
// registered onPkt callback directly.
type mockFace struct {
	mu       sync.Mutex
	running  bool
	onPkt    func(frame []byte)
	onError  func(err error)
	sent     []enc.Wire
	sendHook func(enc.Wire) error
}

func newMockFace() *mockFace {
	return &mockFace{running: true}
}

func (f *mockFace) String() string  { return "mock-face" }
func (f *mockFace) IsRunning() bool { return f.running }
func (f *mockFace) IsLocal() bool   { return true }
func (f *mockFace) Open() error     { f.running = true; return nil }
func (f *mockFace) Close() error    { f.running = false; return nil }

// Send records each individually-framed packet in the batch (the
// dispatcher hands multiple LpPacket buffers to Send as one Wire, one
// Buffer per Interest, never byte-concatenated) and, if a sendHook is
// set, invokes it once per frame so tests can script a reply for every
// admitted Interest in a batch, not just the first.
func (f *mockFace) Send(pkt enc.Wire) error {
	if !f.running {
		return fmt.Errorf("mock face is closed")
	}

	f.mu.Lock()
	hook := f.sendHook
	for _, buf := range pkt {
		f.sent = append(f.sent, enc.Wire{buf})
	}
	f.mu.Unlock()

	if hook != nil {
		for _, buf := range pkt {
			if err := hook(enc.Wire{buf}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *mockFace) OnPacket(onPkt func(frame []byte)) { f.onPkt = onPkt }
func (f *mockFace) OnError(onError func(err error))   { f.onError = onError }
func (f *mockFace) OnUp(onUp func()) (cancel func())  { return func() {} }
func (f *mockFace) OnDown(onDown func()) (cancel func()) { return func() {} }

// deliver pushes frame to the pipeline as if it had arrived off the wire.
func (f *mockFace) deliver(frame []byte) {
	f.onPkt(frame)
}

// sentCount returns how many individual Interest frames Send has
// captured so far, across all batches.
func (f *mockFace) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// sentWires returns a snapshot of every individual Interest frame sent
// so far.
func (f *mockFace) sentWires() []enc.Wire {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]enc.Wire, len(f.sent))
	copy(out, f.sent)
	return out
}
