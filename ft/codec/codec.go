package codec

import (
	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/ndn"
)

// TLVCodec is the concrete NDN TLV + NDNLP wire codec used by the
// pipeline. It satisfies pipeline.Codec.
type TLVCodec struct{}

// NewTLVCodec constructs a TLVCodec. It carries no state: all framing
// and token handling is a pure function of its inputs.
func NewTLVCodec() *TLVCodec { return &TLVCodec{} }

// EncodeInterestWithToken produces an NDNLP-wrapped Interest packet
// carrying the given PitToken in its PitToken field.
func (*TLVCodec) EncodeInterestWithToken(i *ndn.Interest, token uint64) (enc.Wire, error) {
	interestBlk := encodeInterest(i)
	return enc.Wire{wrapLp(token, interestBlk, nil)}, nil
}

// DecodeInterest recovers the logical Interest from a wire block
// previously produced by EncodeInterestWithToken, discarding the token.
func (*TLVCodec) DecodeInterest(w enc.Wire) (*ndn.Interest, error) {
	_, val, _, err := readTL(w.Join())
	if err != nil {
		return nil, err
	}
	for pos := 0; pos < len(val); {
		fTyp, fVal, n, err := readTL(val[pos:])
		if err != nil {
			return nil, err
		}
		if fTyp == tlvLpFragment {
			return decodeInterest(fVal)
		}
		pos += n
	}
	return nil, enc.ErrFormat{Msg: "no fragment in LpPacket"}
}

// PitTokenValue reads the 8-byte token blob as a uint64.
func (*TLVCodec) PitTokenValue(tokenBlob []byte) uint64 {
	return tokenValue(tokenBlob)
}

// DecodeIncoming parses one inbound frame (as delivered by the Face)
// into a Data packet or a Nack, together with the PitToken it carries.
func (*TLVCodec) DecodeIncoming(frame []byte) (*Incoming, error) {
	return decodeIncoming(frame)
}

// EncodeData builds an NDNLP-wrapped Data reply carrying the given
// PitToken. Exposed for tests and mock producers that need to hand the
// pipeline a well-formed Data frame.
func (*TLVCodec) EncodeData(name enc.Name, content []byte, token uint64) enc.Wire {
	return enc.Wire{wrapLp(token, encodeData(name, content), nil)}
}

// ExtractPitToken reads the PitToken field out of any LpPacket-wrapped
// wire block (Interest, Data, or Nack) without attempting to decode its
// fragment. Exposed for tests that need to observe the token a sent
// Interest carries.
func (*TLVCodec) ExtractPitToken(w enc.Wire) (uint64, error) {
	_, val, _, err := readTL(w.Join())
	if err != nil {
		return 0, err
	}
	for pos := 0; pos < len(val); {
		fTyp, fVal, n, err := readTL(val[pos:])
		if err != nil {
			return 0, err
		}
		if fTyp == tlvLpPitToken {
			return tokenValue(fVal), nil
		}
		pos += n
	}
	return 0, enc.ErrFormat{Msg: "no PitToken in LpPacket"}
}

// EncodeNack builds an NDNLP Nack frame wrapping the original Interest,
// carrying the given PitToken and reason. Exposed for tests and mock
// producers that need to hand the pipeline a well-formed Nack frame.
func (*TLVCodec) EncodeNack(orig *ndn.Interest, reason ndn.NackReason, token uint64) enc.Wire {
	interestBlk := encodeInterest(orig)
	rsn := enc.TLNum(nackReasonToWire(reason))
	return enc.Wire{wrapLp(token, interestBlk, &rsn)}
}
