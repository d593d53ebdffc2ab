// Package codec provides a concrete, minimal NDN TLV + NDNLP wire codec
// for the file-transfer pipeline: Interest/Data/Nack encode-decode and
// LpPacket framing, built directly on the std/encoding TLV primitives.
package codec

import enc "github.com/named-data/ndnc/std/encoding"

// NDN packet-format and NDNLPv2 TLV-TYPE numbers this codec speaks.
// These are the public wire constants of the protocol, not project
// invention.
const (
	tlvInterest         enc.TLNum = 0x05
	tlvData             enc.TLNum = 0x06
	tlvName             enc.TLNum = 0x07
	tlvContent          enc.TLNum = 0x15
	tlvNonce            enc.TLNum = 0x0a
	tlvInterestLifetime enc.TLNum = 0x0c

	tlvLpPacket   enc.TLNum = 0x64
	tlvLpFragment enc.TLNum = 0x50
	tlvLpPitToken enc.TLNum = 0x62
	tlvLpNack     enc.TLNum = 0x320
	tlvLpNackRsn  enc.TLNum = 0x321
)

// encodeTL writes a Type-Length header for a block of the given value
// length and returns the full buffer plus the offset where the value
// bytes should be written.
func encodeTL(typ enc.TLNum, valueLen int) (buf enc.Buffer, valOff int) {
	tLen := typ.EncodingLength()
	lLen := enc.TLNum(valueLen).EncodingLength()
	buf = make(enc.Buffer, tLen+lLen+valueLen)
	off := typ.EncodeInto(buf)
	off += enc.TLNum(valueLen).EncodeInto(buf[off:])
	return buf, off
}

// block builds one complete TLV block (Type-Length-Value) around value.
func block(typ enc.TLNum, value []byte) enc.Buffer {
	buf, off := encodeTL(typ, len(value))
	copy(buf[off:], value)
	return buf
}

// natBlock builds a TLV block whose value is the minimal natural-number
// encoding of v.
func natBlock(typ enc.TLNum, v uint64) enc.Buffer {
	return block(typ, enc.Nat(v).Bytes())
}

// readTL parses one TLV (Type, Length, value-offset) from the head of
// buf and returns the parsed type, the value slice, and the number of
// bytes consumed overall (header + value).
func readTL(buf []byte) (typ enc.TLNum, value []byte, consumed int, err error) {
	if len(buf) == 0 {
		return 0, nil, 0, enc.ErrFormat{Msg: "empty TLV buffer"}
	}
	typ, tOff := enc.ParseTLNum(buf)
	if tOff >= len(buf) {
		return 0, nil, 0, enc.ErrFormat{Msg: "truncated TLV length"}
	}
	length, lOff := enc.ParseTLNum(buf[tOff:])
	start := tOff + lOff
	end := start + int(length)
	if end > len(buf) {
		return 0, nil, 0, enc.ErrFormat{Msg: "truncated TLV value"}
	}
	return typ, buf[start:end], end, nil
}
