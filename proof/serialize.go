package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/forestrie/go-merkletree/merkleerr"
)

// magic and version tag the wire format so that a structural change can
// be detected on load.
const (
	magic             = "MPRF"
	version     uint8 = 1
	rightOrient byte  = 1
	leftOrient  byte  = 0
)

// Serialize encodes p using the bit-exact wire format below, all
// integers little-endian:
//
//	magic          4 bytes   "MPRF"
//	version        u8        1
//	leaf_index     u64
//	tree_height    u32
//	leaf_length    u32       followed by leaf bytes
//	sibling_count  u32       equals tree_height
//	per sibling:   u32 length, bytes, u8 orientation (1 = right)
func Serialize(p Proof) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(version)

	writeU64(&buf, p.LeafIndex)
	writeU32(&buf, p.Height)

	writeU32(&buf, uint32(len(p.Leaf)))
	buf.Write(p.Leaf)

	writeU32(&buf, uint32(len(p.Siblings)))
	for i, sib := range p.Siblings {
		writeU32(&buf, uint32(len(sib)))
		buf.Write(sib)
		if p.SiblingIsRight[i] {
			buf.WriteByte(rightOrient)
		} else {
			buf.WriteByte(leftOrient)
		}
	}
	return buf.Bytes()
}

// Deserialize decodes a Proof previously produced by Serialize. It
// validates the magic, the version, and that sibling_count equals
// tree_height, returning merkleerr.ErrFormatMismatch otherwise.
func Deserialize(data []byte) (Proof, error) {
	r := bytes.NewReader(data)

	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return Proof{}, fmt.Errorf("%w: truncated proof magic: %v", merkleerr.ErrFormatMismatch, err)
	}
	if string(gotMagic) != magic {
		return Proof{}, fmt.Errorf("%w: bad proof magic %q", merkleerr.ErrFormatMismatch, gotMagic)
	}

	gotVersion, err := r.ReadByte()
	if err != nil {
		return Proof{}, fmt.Errorf("%w: truncated proof version: %v", merkleerr.ErrFormatMismatch, err)
	}
	if gotVersion != version {
		return Proof{}, fmt.Errorf("%w: unsupported proof version %d", merkleerr.ErrFormatMismatch, gotVersion)
	}

	leafIndex, err := readU64(r)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: truncated leaf index: %v", merkleerr.ErrFormatMismatch, err)
	}
	height, err := readU32(r)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: truncated tree height: %v", merkleerr.ErrFormatMismatch, err)
	}

	leafLen, err := readU32(r)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: truncated leaf length: %v", merkleerr.ErrFormatMismatch, err)
	}
	leaf := make([]byte, leafLen)
	if _, err := io.ReadFull(r, leaf); err != nil {
		return Proof{}, fmt.Errorf("%w: truncated leaf bytes: %v", merkleerr.ErrFormatMismatch, err)
	}

	siblingCount, err := readU32(r)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: truncated sibling count: %v", merkleerr.ErrFormatMismatch, err)
	}
	if siblingCount != height {
		return Proof{}, fmt.Errorf(
			"%w: sibling_count %d does not equal tree_height %d", merkleerr.ErrFormatMismatch, siblingCount, height)
	}

	siblings := make([][]byte, siblingCount)
	orientations := make([]bool, siblingCount)
	for i := uint32(0); i < siblingCount; i++ {
		length, err := readU32(r)
		if err != nil {
			return Proof{}, fmt.Errorf("%w: truncated sibling %d length: %v", merkleerr.ErrFormatMismatch, i, err)
		}
		sib := make([]byte, length)
		if _, err := io.ReadFull(r, sib); err != nil {
			return Proof{}, fmt.Errorf("%w: truncated sibling %d bytes: %v", merkleerr.ErrFormatMismatch, i, err)
		}
		orient, err := r.ReadByte()
		if err != nil {
			return Proof{}, fmt.Errorf("%w: truncated sibling %d orientation: %v", merkleerr.ErrFormatMismatch, i, err)
		}
		siblings[i] = sib
		orientations[i] = orient == rightOrient
	}

	return Proof{
		Leaf:           leaf,
		LeafIndex:      leafIndex,
		Height:         height,
		Siblings:       siblings,
		SiblingIsRight: orientations,
	}, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
