package streambuild

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/forestrie/go-merkletree/merkleerr"
)

// writeFrame appends digest to w as a 32-bit little-endian length prefix
// followed by the digest bytes. The prefix accommodates variable-width
// digests from user-supplied hashes; every built-in hash is fixed-width,
// so for them the prefix is redundant but kept for format consistency.
func writeFrame(w io.Writer, digest []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(digest)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: writing frame length: %v", merkleerr.ErrIOFailure, err)
	}
	if _, err := w.Write(digest); err != nil {
		return fmt.Errorf("%w: writing frame bytes: %v", merkleerr.ErrIOFailure, err)
	}
	return nil
}

// readFrame reads one frame from r. ok is false with a nil error at clean
// EOF (no bytes read before the length prefix).
func readFrame(r io.Reader) (digest []byte, ok bool, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: reading frame length: %v", merkleerr.ErrIOFailure, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	digest = make([]byte, n)
	if _, err := io.ReadFull(r, digest); err != nil {
		return nil, false, fmt.Errorf("%w: reading frame bytes: %v", merkleerr.ErrIOFailure, err)
	}
	return digest, true, nil
}
