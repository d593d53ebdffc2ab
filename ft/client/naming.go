// Package client implements the file-transfer worker: chunked segment
// fetch, out-of-order reassembly, and manifest-driven batch transfers on
// top of the ft/pipeline Interest engine.
package client

import (
	"fmt"
	"strings"

	enc "github.com/named-data/ndnc/std/encoding"
)

// metadataSuffix is the literal value of the name component of TLV-TYPE
// 32 (0x20, enc.TypeKeywordNameComponent) identifying a file's metadata
// packet.
const metadataSuffix = "metadata"

// SegmentName builds the Interest name for one file segment:
// <prefix>/<filePath>/<version>/<segmentNo>.
func SegmentName(prefix, filePath string, version, segmentNo uint64) (enc.Name, error) {
	base, err := joinName(prefix, filePath)
	if err != nil {
		return nil, err
	}
	return base.Append(
		enc.NewVersionComponent(version),
		enc.NewSegmentComponent(segmentNo),
	), nil
}

// MetadataName builds the Interest name for a file's metadata packet:
// <prefix>/<filePath>/32=metadata.
func MetadataName(prefix, filePath string) (enc.Name, error) {
	base, err := joinName(prefix, filePath)
	if err != nil {
		return nil, err
	}
	return base.Append(enc.NewKeywordComponent(metadataSuffix)), nil
}

// segmentNumber returns the value of name's segment component, scanning
// from the end since the segment is always the final component of a
// segment name.
func segmentNumber(name enc.Name) (uint64, bool) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i].IsSegment() {
			return name[i].NumberVal(), true
		}
	}
	return 0, false
}

// joinName concatenates a URI-style prefix and file path into one Name,
// tolerating either side carrying leading/trailing slashes.
func joinName(prefix, filePath string) (enc.Name, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	filePath = strings.TrimPrefix(filePath, "/")
	if prefix == "" || filePath == "" {
		return nil, fmt.Errorf("client: prefix and filepath must both be non-empty")
	}
	return enc.NameFromStr(prefix + "/" + filePath)
}
