// Package lob streams large objects from source cursors into external
// sink files in fixed-size chunks.
package lob

import (
	"hash/crc32"
	"io"
)

const (
	// ChunkSize is the transfer buffer size. Memory use per transfer
	// is bounded by this regardless of object size.
	ChunkSize = 32 * 1024

	// MissingSentinel is the marker value the target engine stores when
	// a referenced file cannot be loaded at import time. The generated
	// check script searches for it to report exactly which large object
	// columns lost files, instead of the import failing outright.
	MissingSentinel = "LOB_FILE_NOT_FOUND"

	// BinaryExt and CharacterExt are the file name extensions for the
	// two large object kinds.
	BinaryExt    = ".blob"
	CharacterExt = ".clob"
)

// Streamer copies large objects with a reusable chunk buffer. It is not
// safe for concurrent use; each table worker owns its own.
type Streamer struct {
	buf []byte
}

func NewStreamer() *Streamer {
	return &Streamer{buf: make([]byte, ChunkSize)}
}

// Stream copies src into dst chunk by chunk, returning the number of
// bytes written and the CRC-32 of those bytes. src (when it is a
// closer) and dst are closed on every path, including failures.
func (s *Streamer) Stream(dst io.WriteCloser, src io.Reader) (written int64, crc uint32, err error) {
	defer func() {
		if c, ok := src.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		n, rerr := src.Read(s.buf)
		if n > 0 {
			crc = crc32.Update(crc, crc32.IEEETable, s.buf[:n])
			wn, werr := dst.Write(s.buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, crc, werr
			}
			if wn < n {
				return written, crc, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, crc, nil
		}
		if rerr != nil {
			return written, crc, rerr
		}
	}
}
