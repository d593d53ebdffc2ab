package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/named-data/ndnc/std/ndn"
	"github.com/named-data/ndnc/std/types/optional"
	tu "github.com/named-data/ndnc/std/utils/io"

	"github.com/named-data/ndnc/ft/pipeline"
)

// ErrSegmentFailed marks a chunk byte range that could not be fully
// fetched after the pipeline exhausted its retry budget or received a
// permanent Nack for one of its segments.
var ErrSegmentFailed = errors.New("client: segment permanently failed")

// Config holds everything one Transfer needs besides the pipeline
// itself, mirroring the CLI surface.
type Config struct {
	Prefix      string
	FilePath    string
	FileSize    uint64
	Version     uint64
	Lifetime    time.Duration
	PayloadSize int
	ChunkSize   int
	NThreads    int
}

// Transfer drives a single file fetch: it partitions the file into
// chunks, fans chunks out across NThreads worker goroutines, and has
// each worker request its chunk's segments through the shared Pipeline
// before writing reassembled bytes to its own disjoint byte range of
// the output file.
type Transfer struct {
	cfg Config
	pl  *pipeline.Pipeline
}

// NewTransfer constructs a Transfer over an already-running Pipeline.
func NewTransfer(cfg Config, pl *pipeline.Pipeline) *Transfer {
	if cfg.PayloadSize <= 0 {
		cfg.PayloadSize = 1024
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 262144
	}
	if cfg.NThreads <= 0 {
		cfg.NThreads = 1
	}
	return &Transfer{cfg: cfg, pl: pl}
}

// Run fetches the whole file into out, partitioning work across
// cfg.NThreads worker goroutines, and returns the first error
// encountered by any worker (every worker still runs to completion so
// partial progress on other workers is not abandoned).
func (t *Transfer) Run(out *os.File) error {
	if t.cfg.FileSize == 0 {
		return nil
	}

	version, err := t.resolveVersion()
	if err != nil {
		return err
	}
	t.cfg.Version = version

	chunkStarts := t.chunkStarts()

	var wg sync.WaitGroup
	errs := make([]error, len(chunkStarts))

	work := make(chan int, len(chunkStarts))
	for i := range chunkStarts {
		work <- i
	}
	close(work)

	nWorkers := t.cfg.NThreads
	if nWorkers > len(chunkStarts) {
		nWorkers = len(chunkStarts)
	}

	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				errs[idx] = t.fetchChunk(out, chunkStarts[idx])
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveVersion returns cfg.Version unchanged if the caller pinned one
// explicitly (non-zero), or else issues a single metadata Interest at
// MetadataName to learn the producer's authoritative version before any
// segment is requested. The metadata Data's content is the version
// number as an 8-byte big-endian integer.
func (t *Transfer) resolveVersion() (uint64, error) {
	if t.cfg.Version != 0 {
		return t.cfg.Version, nil
	}

	name, err := MetadataName(t.cfg.Prefix, t.cfg.FilePath)
	if err != nil {
		return 0, err
	}

	rx := pipeline.NewRxQueue(1)
	interest := &ndn.Interest{NameV: name}
	interest.Config.Lifetime = optional.Some(t.cfg.Lifetime)
	if !t.pl.EnqueueInterest(interest, rx) {
		return 0, fmt.Errorf("client: pipeline shut down while requesting metadata for %s", t.cfg.FilePath)
	}

	d := rx.Recv()
	if d.Failed() {
		return 0, fmt.Errorf("%w: metadata request for %s", ErrSegmentFailed, t.cfg.FilePath)
	}

	content := d.Data.Content().Join()
	if len(content) != 8 {
		return 0, fmt.Errorf("client: metadata content for %s is not an 8-byte version number", t.cfg.FilePath)
	}
	return binary.BigEndian.Uint64(content), nil
}

// chunkStarts returns the byte offset of every chunk in the file.
func (t *Transfer) chunkStarts() []int64 {
	var starts []int64
	for off := int64(0); off < int64(t.cfg.FileSize); off += int64(t.cfg.ChunkSize) {
		starts = append(starts, off)
	}
	return starts
}

// fetchChunk requests every segment covering [start, start+chunkSize)
// and writes the reassembled bytes to out at the matching offset.
func (t *Transfer) fetchChunk(out *os.File, start int64) error {
	end := start + int64(t.cfg.ChunkSize)
	if end > int64(t.cfg.FileSize) {
		end = int64(t.cfg.FileSize)
	}
	chunkLen := int(end - start)

	payloadSize := int64(t.cfg.PayloadSize)
	firstSeg := start / payloadSize
	lastSeg := (end - 1) / payloadSize
	nSegs := int(lastSeg-firstSeg) + 1

	rx := pipeline.NewRxQueue(nSegs)
	for seg := firstSeg; seg <= lastSeg; seg++ {
		name, err := SegmentName(t.cfg.Prefix, t.cfg.FilePath, t.cfg.Version, uint64(seg))
		if err != nil {
			return err
		}
		interest := &ndn.Interest{NameV: name}
		interest.Config.Lifetime = optional.Some(t.cfg.Lifetime)
		if !t.pl.EnqueueInterest(interest, rx) {
			return fmt.Errorf("client: pipeline shut down while enqueueing segment %d", seg)
		}
	}

	// Every owed delivery is received even after a failure, so the
	// chunk's RxQueue is fully drained before the error is returned.
	var chunkErr error
	buf := make([]byte, chunkLen)
	for i := 0; i < nSegs; i++ {
		d := rx.Recv()
		if chunkErr != nil {
			continue
		}
		if d.Failed() {
			chunkErr = fmt.Errorf("%w: chunk at offset %d", ErrSegmentFailed, start)
			continue
		}

		segNo, ok := segmentNumber(d.Data.Name())
		if !ok {
			chunkErr = fmt.Errorf("client: data reply carries no segment component")
			continue
		}

		segStart := int64(segNo)*payloadSize - start
		content := d.Data.Content().Join()
		segStart, n := clampIntoChunk(segStart, content, chunkLen)
		copy(buf[segStart:segStart+n], content[:n])
	}
	if chunkErr != nil {
		return chunkErr
	}

	w := tu.NewTimedWriter(newSectionWriter(out, start), t.cfg.ChunkSize)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("client: writing chunk at offset %d: %w", start, err)
	}
	return w.Flush()
}

// clampIntoChunk bounds a segment's placement within a chunk buffer,
// in case the last segment of the file is shorter than PayloadSize.
func clampIntoChunk(segStart int64, content []byte, chunkLen int) (int64, int) {
	if segStart < 0 {
		segStart = 0
	}
	n := len(content)
	if int(segStart)+n > chunkLen {
		n = chunkLen - int(segStart)
	}
	if n < 0 {
		n = 0
	}
	return segStart, n
}
