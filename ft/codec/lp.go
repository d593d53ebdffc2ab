package codec

import (
	"encoding/binary"

	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/ndn"
)

// tokenBytes serializes a PitToken as 8 little-endian bytes. The token
// is an opaque blob echoed back verbatim by the producer, so the
// encoding is a host-local convention; fixed little-endian keeps it
// simple.
func tokenBytes(token uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, token)
	return b
}

// tokenValue is the inverse of tokenBytes.
func tokenValue(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// wrapLp wraps fragment in an NDNLP LpPacket carrying the given PitToken
// and, if nack is non-nil, a Nack field with the given reason.
func wrapLp(token uint64, fragment []byte, nack *enc.TLNum) enc.Buffer {
	pitBlk := block(tlvLpPitToken, tokenBytes(token))
	fragBlk := block(tlvLpFragment, fragment)

	var nackBlk []byte
	if nack != nil {
		rsnBlk := natBlock(tlvLpNackRsn, uint64(*nack))
		nackBlk = block(tlvLpNack, rsnBlk)
	}

	valueLen := len(pitBlk) + len(nackBlk) + len(fragBlk)
	buf, off := encodeTL(tlvLpPacket, valueLen)
	off += copy(buf[off:], pitBlk)
	off += copy(buf[off:], nackBlk)
	copy(buf[off:], fragBlk)
	return buf
}

// IncomingKind distinguishes the two kinds of replies the pipeline cares
// about once a PitToken has been resolved.
type IncomingKind int

const (
	IncomingData IncomingKind = iota
	IncomingNack
)

// Incoming is the result of parsing one inbound NDNLP frame.
type Incoming struct {
	Kind       IncomingKind
	Token      uint64
	Data       *ndn.Data
	NackReason ndn.NackReason
}

// nackReasonFromWire maps the wire NackReason natural number (per
// NDNLPv2: 50=Congestion, 100=Duplicate, 150=NoRoute) onto ndn.NackReason.
func nackReasonFromWire(v uint64) ndn.NackReason {
	switch v {
	case 50:
		return ndn.NackReasonCongestion
	case 100:
		return ndn.NackReasonDuplicate
	case 150:
		return ndn.NackReasonNoRoute
	default:
		return ndn.NackReasonNone
	}
}

func nackReasonToWire(r ndn.NackReason) uint64 {
	switch r {
	case ndn.NackReasonCongestion:
		return 50
	case ndn.NackReasonDuplicate:
		return 100
	case ndn.NackReasonNoRoute:
		return 150
	default:
		return 0
	}
}

// decodeIncoming parses one inbound NDNLP frame into an Incoming value.
func decodeIncoming(frame []byte) (*Incoming, error) {
	typ, val, _, err := readTL(frame)
	if err != nil {
		return nil, err
	}
	if typ != tlvLpPacket {
		return nil, enc.ErrFormat{Msg: "not an LpPacket TLV block"}
	}

	in := &Incoming{Kind: IncomingData}
	var fragment []byte

	for pos := 0; pos < len(val); {
		fTyp, fVal, n, err := readTL(val[pos:])
		if err != nil {
			return nil, err
		}
		switch fTyp {
		case tlvLpPitToken:
			in.Token = tokenValue(fVal)
		case tlvLpFragment:
			fragment = fVal
		case tlvLpNack:
			in.Kind = IncomingNack
			for npos := 0; npos < len(fVal); {
				nTyp, nVal, nn, err := readTL(fVal[npos:])
				if err != nil {
					return nil, err
				}
				if nTyp == tlvLpNackRsn {
					nat, _, err := enc.ParseNat(nVal)
					if err != nil {
						return nil, err
					}
					in.NackReason = nackReasonFromWire(uint64(nat))
				}
				npos += nn
			}
		}
		pos += n
	}

	if in.Kind == IncomingData {
		data, err := decodeData(fragment)
		if err != nil {
			return nil, err
		}
		in.Data = data
	}

	return in, nil
}
