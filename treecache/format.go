package treecache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/forestrie/go-merkletree/merkleerr"
)

// fileMagic and fileVersion tag the on-disk format; the full layout is
// documented on Save. The version is checked on every load and must be
// bumped on any structural change.
const (
	fileMagic          = "MTCACHE\x00"
	fileVersion uint32 = 1
)

// Save writes c to w in the cache wire format: a header naming the hash
// algorithm and band, one section per cached level holding its dense
// digest array, and a trailing CRC32 (IEEE) of every byte written before
// it.
func (c *Cache) Save(w io.Writer) error {
	var buf bytes.Buffer

	buf.WriteString(fileMagic)
	writeU32(&buf, fileVersion)

	hashNameBytes := []byte(c.header.HashName)
	writeU32(&buf, uint32(len(hashNameBytes)))
	buf.Write(hashNameBytes)

	writeU32(&buf, uint32(c.header.DigestSize))
	writeU32(&buf, uint32(c.header.Height))
	writeU64(&buf, c.header.LeafCount)
	writeU32(&buf, uint32(c.header.Band.Start))
	writeU32(&buf, uint32(c.header.Band.End))

	for i, levelBytes := range c.levels {
		levelIndex := c.header.Band.Start + i
		writeU32(&buf, uint32(levelIndex))
		nodeCount := uint64(len(levelBytes)) / uint64(c.header.DigestSize)
		writeU64(&buf, nodeCount)
		buf.Write(levelBytes)
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(&buf, sum)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: writing cache: %v", merkleerr.ErrIOFailure, err)
	}
	return nil
}

// SaveFile writes c to a new file at path via Save.
func (c *Cache) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating cache file %q: %v", merkleerr.ErrIOFailure, path, err)
	}
	defer f.Close()
	return c.Save(f)
}

// Load reads a Cache previously written by Save. It validates the magic,
// the version, and the trailing CRC32, returning merkleerr.ErrFormatMismatch
// on any mismatch.
func Load(r io.Reader) (*Cache, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading cache: %v", merkleerr.ErrIOFailure, err)
	}

	if len(data) < len(fileMagic)+4 {
		return nil, fmt.Errorf("%w: cache file too short", merkleerr.ErrFormatMismatch)
	}
	if string(data[:len(fileMagic)]) != fileMagic {
		return nil, fmt.Errorf("%w: bad cache magic %q", merkleerr.ErrFormatMismatch, data[:len(fileMagic)])
	}

	if len(data) < 4 {
		return nil, fmt.Errorf("%w: cache file missing trailer", merkleerr.ErrFormatMismatch)
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	wantCRC := binary.LittleEndian.Uint32(trailer)
	gotCRC := crc32.ChecksumIEEE(body)
	if gotCRC != wantCRC {
		return nil, fmt.Errorf("%w: cache CRC mismatch (want %x got %x)", merkleerr.ErrFormatMismatch, wantCRC, gotCRC)
	}

	r2 := bytes.NewReader(body[len(fileMagic):])

	version, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated cache version: %v", merkleerr.ErrFormatMismatch, err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported cache version %d", merkleerr.ErrFormatMismatch, version)
	}

	nameLen, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated hash name length: %v", merkleerr.ErrFormatMismatch, err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r2, nameBytes); err != nil {
		return nil, fmt.Errorf("%w: truncated hash name: %v", merkleerr.ErrFormatMismatch, err)
	}

	digestSize, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated digest size: %v", merkleerr.ErrFormatMismatch, err)
	}
	height, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated tree height: %v", merkleerr.ErrFormatMismatch, err)
	}
	leafCount, err := readU64(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated leaf count: %v", merkleerr.ErrFormatMismatch, err)
	}
	start, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated start level: %v", merkleerr.ErrFormatMismatch, err)
	}
	end, err := readU32(r2)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated end level: %v", merkleerr.ErrFormatMismatch, err)
	}

	band := Band{Start: int(start), End: int(end)}
	if err := validateBand(band, int(height)); err != nil {
		return nil, fmt.Errorf("%w: %v", merkleerr.ErrFormatMismatch, err)
	}

	levels := make([][]byte, band.End-band.Start+1)
	for i := 0; i <= band.End-band.Start; i++ {
		levelIndex, err := readU32(r2)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated level index: %v", merkleerr.ErrFormatMismatch, err)
		}
		if int(levelIndex) != band.Start+i {
			return nil, fmt.Errorf("%w: out-of-order level index %d", merkleerr.ErrFormatMismatch, levelIndex)
		}
		nodeCount, err := readU64(r2)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated node count: %v", merkleerr.ErrFormatMismatch, err)
		}
		levelBytes := make([]byte, nodeCount*uint64(digestSize))
		if _, err := io.ReadFull(r2, levelBytes); err != nil {
			return nil, fmt.Errorf("%w: truncated level digests: %v", merkleerr.ErrFormatMismatch, err)
		}
		levels[i] = levelBytes
	}

	return &Cache{
		header: Header{
			HashName:   string(nameBytes),
			DigestSize: int(digestSize),
			Height:     int(height),
			LeafCount:  leafCount,
			Band:       band,
		},
		levels: levels,
	}, nil
}

// LoadFile reads a Cache from the file at path via Load.
func LoadFile(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening cache file %q: %v", merkleerr.ErrIOFailure, path, err)
	}
	defer f.Close()
	return Load(f)
}

// LoadExpectingHash is Load followed by a check that the cache's
// hash_name matches expectedHashName; a loaded cache is useless to a
// verifier using a different hash.
func LoadExpectingHash(r io.Reader, expectedHashName string) (*Cache, error) {
	c, err := Load(r)
	if err != nil {
		return nil, err
	}
	if c.header.HashName != expectedHashName {
		return nil, fmt.Errorf("%w: cache hash %q does not match expected %q",
			merkleerr.ErrFormatMismatch, c.header.HashName, expectedHashName)
	}
	return c, nil
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
