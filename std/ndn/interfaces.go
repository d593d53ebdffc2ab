package ndn

import (
	"fmt"
	"time"

	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/types/optional"
)

// Face is the transport collaborator: it moves already wire-encoded NDN
// packets to and from the network. Implementations live in
// std/engine/face; the pipeline only depends on this interface.
type Face interface {
	fmt.Stringer

	// IsRunning returns true if the face is open and usable.
	IsRunning() bool
	// IsLocal returns true if the face connects to a local forwarder.
	IsLocal() bool

	// Open starts the face. OnPacket and OnError must be set first.
	Open() error
	// Close shuts down the face.
	Close() error
	// Send submits already-encoded bytes; the pipeline passes a whole
	// batch of packets back-to-back in one Wire. Returns an error on
	// fatal transport failure.
	Send(pkt enc.Wire) error

	// OnPacket registers the callback invoked for every inbound frame.
	OnPacket(onPkt func(frame []byte))
	// OnError registers the callback invoked on a fatal transport error.
	OnError(onError func(err error))
	// OnUp registers a callback invoked when the face becomes usable.
	OnUp(onUp func()) (cancel func())
	// OnDown registers a callback invoked when the face goes down.
	OnDown(onDown func()) (cancel func())
}

// InterestConfig carries the logical parameters of an Interest that are
// not part of its Name.
type InterestConfig struct {
	Lifetime optional.Optional[time.Duration]
	Nonce    uint32
}

// Interest is the logical (pre-wire-encoding) representation of a
// request for a piece of named content.
type Interest struct {
	NameV  enc.Name
	Config InterestConfig
}

// Name returns the Interest's name.
func (i *Interest) Name() enc.Name { return i.NameV }

// Lifetime returns the configured Interest lifetime, if any.
func (i *Interest) Lifetime() optional.Optional[time.Duration] { return i.Config.Lifetime }

// Data is the logical (post-wire-decoding) representation of a
// response carrying named content bytes.
type Data struct {
	NameV    enc.Name
	ContentV enc.Wire
}

// Name returns the Data packet's name.
func (d *Data) Name() enc.Name { return d.NameV }

// Content returns the Data packet's content.
func (d *Data) Content() enc.Wire { return d.ContentV }

// NackReason identifies why an Interest was negatively acknowledged.
type NackReason int

const (
	NackReasonNone NackReason = iota
	NackReasonCongestion
	NackReasonDuplicate
	NackReasonNoRoute
)

// String returns a human-readable name for the NackReason.
func (r NackReason) String() string {
	switch r {
	case NackReasonCongestion:
		return "congestion"
	case NackReasonDuplicate:
		return "duplicate"
	case NackReasonNoRoute:
		return "no-route"
	default:
		return "none"
	}
}
