package types

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Paddr is a physical block address. A negative value is never valid on
// disk; FusionTier2DeviceByteAddr (defined in fusion.go) is carried in a
// high bit of otherwise positive addresses.
// Reference: page 25
type Paddr int64

// Prange is a range of physical addresses.
// Reference: page 25
type Prange struct {
	StartPaddr Paddr
	BlockCount uint64
}

// NlocT locates a piece of variable-size data inside a B-tree node relative
// to that node's keys area or values area.
// Reference: page 148
type NlocT struct {
	Off uint16
	Len uint16
}

// BtOffInvalid marks an NlocT as unused.
const BtOffInvalid uint16 = 0xffff

// UUID is a 128-bit universally unique identifier, stored on disk as raw
// bytes (not the dash-formatted string form).
// Reference: page 26
type UUID [16]byte

// String renders the UUID in canonical 8-4-4-4-12 form.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// IsZero reports whether the UUID is all zero bytes, the sentinel used for
// "no Fusion set" and similar absent-value cases.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// ParseUUID parses a canonical UUID string into on-disk byte order.
func ParseUUID(s string) (UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("parse uuid %q: %w", s, err)
	}
	return UUID(parsed), nil
}

// CpKeyClassT is a per-file protection class, as used by Data Protection.
// Reference: page 159
type CpKeyClassT uint32

// ReadUUID copies a 16-byte UUID out of b at the given offset.
func ReadUUID(b []byte, off int) UUID {
	var u UUID
	copy(u[:], b[off:off+16])
	return u
}

// PutUUID writes a UUID into b at the given offset.
func PutUUID(b []byte, off int, u UUID) {
	copy(b[off:off+16], u[:])
}

// LE is the byte order used by every on-disk APFS structure.
var LE = binary.LittleEndian
