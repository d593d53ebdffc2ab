package io

import (
	"bufio"
	"io"

	enc "github.com/named-data/ndnc/std/encoding"
)

// ReadTlvStream reads consecutive TLV blocks from r and invokes onPkt with
// each complete block (Type + Length + Value). Reading stops when onPkt
// returns false or the stream produces an unrecoverable error. onError, if
// not nil, is called for errors that occur between packet boundaries and
// do not otherwise abort the loop (currently unused, reserved for framing
// recovery).
func ReadTlvStream(r io.Reader, onPkt func([]byte) bool, onError func(error)) error {
	br := bufio.NewReaderSize(r, 1<<16)
	for {
		typ, err := readTLNum(br)
		if err != nil {
			return err
		}
		length, err := readTLNum(br)
		if err != nil {
			return err
		}

		typLen := enc.TLNum(typ).EncodingLength() + enc.TLNum(length).EncodingLength()
		buf := make([]byte, typLen+int(length))
		enc.TLNum(typ).EncodeInto(buf)
		enc.TLNum(length).EncodeInto(buf[enc.TLNum(typ).EncodingLength():])

		if _, err := io.ReadFull(br, buf[typLen:]); err != nil {
			return err
		}

		if !onPkt(buf) {
			return nil
		}
	}
}

// readTLNum reads one NDN variable-length number directly off a buffered
// reader, mirroring encoding.WireView.ReadTLNum but without requiring the
// whole packet to be buffered up front.
func readTLNum(br *bufio.Reader) (uint64, error) {
	x, err := br.ReadByte()
	if err != nil {
		return 0, err
	}

	var n int
	switch {
	case x <= 0xfc:
		return uint64(x), nil
	case x == 0xfd:
		n = 2
	case x == 0xfe:
		n = 4
	default:
		n = 8
	}

	var val uint64
	for i := 0; i < n; i++ {
		b, err := br.ReadByte()
		if err != nil {
			return 0, io.ErrUnexpectedEOF
		}
		val = (val << 8) | uint64(b)
	}
	return val, nil
}
