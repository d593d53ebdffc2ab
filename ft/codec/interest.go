package codec

import (
	"encoding/binary"
	"time"

	enc "github.com/named-data/ndnc/std/encoding"
	"github.com/named-data/ndnc/std/ndn"
)

// encodeName serializes a Name into an NDN Name TLV block.
func encodeName(name enc.Name) []byte {
	nameLen := name.EncodingLength()
	buf := make(enc.Buffer, nameLen)
	name.EncodeInto(buf)
	return block(tlvName, buf)
}

// decodeName parses the value of a Name TLV block back into a Name.
func decodeName(val []byte) (enc.Name, error) {
	name := make(enc.Name, 0, 4)
	for pos := 0; pos < len(val); {
		typ, cval, n, err := readTL(val[pos:])
		if err != nil {
			return nil, err
		}
		name = append(name, enc.Component{Typ: typ, Val: cval})
		pos += n
	}
	return name, nil
}

// encodeInterest builds a minimal but wire-correct Interest TLV block:
// Name, Nonce, and InterestLifetime (if set). Selectors, ForwardingHint,
// and signed-Interest fields are out of scope for this consumer core.
func encodeInterest(i *ndn.Interest) []byte {
	nameBlk := encodeName(i.NameV)

	nonce := make([]byte, 4)
	binary.BigEndian.PutUint32(nonce, i.Config.Nonce)
	nonceBlk := block(tlvNonce, nonce)

	var lifetimeBlk []byte
	if ms, ok := i.Config.Lifetime.Get(); ok {
		lifetimeBlk = natBlock(tlvInterestLifetime, uint64(ms/time.Millisecond))
	}

	valueLen := len(nameBlk) + len(nonceBlk) + len(lifetimeBlk)
	buf, off := encodeTL(tlvInterest, valueLen)
	off += copy(buf[off:], nameBlk)
	off += copy(buf[off:], nonceBlk)
	copy(buf[off:], lifetimeBlk)
	return buf
}

// decodeInterest parses an Interest TLV block back into a logical
// Interest, recovering the Name, Nonce, and lifetime.
func decodeInterest(buf []byte) (*ndn.Interest, error) {
	typ, val, _, err := readTL(buf)
	if err != nil {
		return nil, err
	}
	if typ != tlvInterest {
		return nil, enc.ErrFormat{Msg: "not an Interest TLV block"}
	}

	i := &ndn.Interest{}
	for pos := 0; pos < len(val); {
		fTyp, fVal, n, err := readTL(val[pos:])
		if err != nil {
			return nil, err
		}
		switch fTyp {
		case tlvName:
			name, err := decodeName(fVal)
			if err != nil {
				return nil, err
			}
			i.NameV = name
		case tlvNonce:
			if len(fVal) == 4 {
				i.Config.Nonce = binary.BigEndian.Uint32(fVal)
			}
		case tlvInterestLifetime:
			nat, _, err := enc.ParseNat(fVal)
			if err != nil {
				return nil, err
			}
			i.Config.Lifetime.Set(time.Duration(nat) * time.Millisecond)
		}
		pos += n
	}
	return i, nil
}

// encodeData builds a minimal Data TLV block: Name and Content.
// MetaInfo and signature fields are omitted; signing and verification
// are out of scope for this codec.
func encodeData(name enc.Name, content []byte) []byte {
	nameBlk := encodeName(name)
	contentBlk := block(tlvContent, content)

	buf, off := encodeTL(tlvData, len(nameBlk)+len(contentBlk))
	off += copy(buf[off:], nameBlk)
	copy(buf[off:], contentBlk)
	return buf
}

// decodeData parses a Data TLV block back into a logical Data packet.
func decodeData(buf []byte) (*ndn.Data, error) {
	typ, val, _, err := readTL(buf)
	if err != nil {
		return nil, err
	}
	if typ != tlvData {
		return nil, enc.ErrFormat{Msg: "not a Data TLV block"}
	}

	d := &ndn.Data{}
	for pos := 0; pos < len(val); {
		fTyp, fVal, n, err := readTL(val[pos:])
		if err != nil {
			return nil, err
		}
		switch fTyp {
		case tlvName:
			name, err := decodeName(fVal)
			if err != nil {
				return nil, err
			}
			d.NameV = name
		case tlvContent:
			d.ContentV = enc.Wire{fVal}
		}
		pos += n
	}
	return d, nil
}
