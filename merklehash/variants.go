package merklehash

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/zeebo/blake3"
)

const (
	// NameSHA256 is the Name() reported by SHA256().
	NameSHA256 = "SHA-256"
	// NameSHA512 is the Name() reported by SHA512().
	NameSHA512 = "SHA-512"
	// NameBLAKE3 is the Name() reported by BLAKE3().
	NameBLAKE3 = "BLAKE3"
)

type sha256Hash struct{}

func (sha256Hash) Name() string { return NameSHA256 }
func (sha256Hash) Size() int    { return sha256.Size }
func (sha256Hash) Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// SHA256 returns the standard-library 256-bit SHA-2 digest.
func SHA256() Hash { return sha256Hash{} }

type sha512Hash struct{}

func (sha512Hash) Name() string { return NameSHA512 }
func (sha512Hash) Size() int    { return sha512.Size }
func (sha512Hash) Sum(b []byte) []byte {
	sum := sha512.Sum512(b)
	return sum[:]
}

// SHA512 returns the standard-library 512-bit SHA-2 digest.
func SHA512() Hash { return sha512Hash{} }

type blake3Hash struct{}

func (blake3Hash) Name() string { return NameBLAKE3 }
func (blake3Hash) Size() int    { return 32 }
func (blake3Hash) Sum(b []byte) []byte {
	sum := blake3.Sum256(b)
	return sum[:]
}

// BLAKE3 returns the 256-bit BLAKE3 digest.
func BLAKE3() Hash { return blake3Hash{} }

// ByName resolves one of the three required variants by its Name(). It
// returns (nil, false) for any other name; callers with a user-supplied
// hash should hold onto their own Hash value instead of round-tripping
// through a name.
func ByName(name string) (Hash, bool) {
	switch name {
	case NameSHA256:
		return SHA256(), true
	case NameSHA512:
		return SHA512(), true
	case NameBLAKE3:
		return BLAKE3(), true
	default:
		return nil, false
	}
}
