package client

import "os"

// sectionWriter is an io.Writer that appends sequentially into an
// *os.File starting at a fixed byte offset, using positional writes
// (WriteAt) rather than the file's shared cursor. Each worker owns one
// sectionWriter over its own disjoint byte range of the output file, so
// concurrent workers never race on the same file descriptor's seek
// position. It is wrapped in a std/utils/io.TimedWriter the same way the
// teacher wraps a socket: batching small writes instead of flushing one
// syscall per chunk.
type sectionWriter struct {
	f      *os.File
	cursor int64
}

func newSectionWriter(f *os.File, startOffset int64) *sectionWriter {
	return &sectionWriter{f: f, cursor: startOffset}
}

func (w *sectionWriter) Write(p []byte) (int, error) {
	n, err := w.f.WriteAt(p, w.cursor)
	w.cursor += int64(n)
	return n, err
}
