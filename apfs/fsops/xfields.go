package fsops

import (
	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// XField is one decoded extended-field entry: a typed, optionally
// system/user-tagged blob attached to an inode or directory record.
type XField struct {
	Type  uint8
	Flags uint8
	Data  []byte
}

// ParseXFields walks an xf_blob_t: a 4-byte header (count, used-data size)
// followed by that many 4-byte x_field_t descriptors, followed by the data
// area they describe. Each entry's payload starts 8-byte aligned relative
// to the start of the data area, per spec.md §4.8.
func ParseXFields(blob []byte) ([]XField, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob) < 4 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "fsops.ParseXFields", "", "blob shorter than xf_blob_t header")
	}
	numExts := int(types.LE.Uint16(blob[0:2]))

	descOff := 4
	dataOff := descOff + numExts*4
	dataOff = align8(dataOff)

	fields := make([]XField, 0, numExts)
	off := dataOff
	for i := 0; i < numExts; i++ {
		d := descOff + i*4
		if d+4 > len(blob) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "fsops.ParseXFields", "", "truncated x_field_t descriptor")
		}
		xType := blob[d]
		xFlags := blob[d+1]
		xSize := int(types.LE.Uint16(blob[d+2 : d+4]))

		if off+xSize > len(blob) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "fsops.ParseXFields", "", "extended field payload runs past blob")
		}
		fields = append(fields, XField{Type: xType, Flags: xFlags, Data: blob[off : off+xSize]})
		off = align8(off + xSize)
	}
	return fields, nil
}

func align8(n int) int { return (n + 7) &^ 7 }

// FindXField returns the first field of the given type, and whether one
// was found.
func FindXField(fields []XField, xType uint8) (XField, bool) {
	for _, f := range fields {
		if f.Type == xType {
			return f, true
		}
	}
	return XField{}, false
}
