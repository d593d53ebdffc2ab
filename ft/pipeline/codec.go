package pipeline

import (
	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/ndn"

	"github.com/named-data/ndnc/ft/codec"
)

// Codec is the wire-encoding collaborator the Pipeline calls into.
// ft/codec.TLVCodec is the concrete implementation used in production;
// tests that drive the dispatcher directly can stand in a mock instead.
type Codec interface {
	EncodeInterestWithToken(i *ndn.Interest, token uint64) (enc.Wire, error)
	DecodeInterest(w enc.Wire) (*ndn.Interest, error)
	PitTokenValue(tokenBlob []byte) uint64
	DecodeIncoming(frame []byte) (*codec.Incoming, error)
}
