package volume

import (
	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/deploymenttheory/go-apfs/apfs/unormalize"
)

func rotl4(x uint64) uint64 {
	return (x << 4) | (x >> 60)
}

func keyHeader(b []byte) (obj types.JKeyT, err error) {
	if len(b) < 8 {
		return obj, apfserr.Wrap(apfserr.InvalidFormat, "volume.keyHeader", "", "key shorter than 8 bytes")
	}
	obj.ObjIdAndType = types.LE.Uint64(b[0:8])
	return obj, nil
}

func recordType(hdr types.JKeyT) uint8 {
	return uint8((hdr.ObjIdAndType & types.ObjTypeMask) >> types.ObjTypeShift)
}

// hashedKeyFormat reports whether the volume's incompatible-feature
// flags select the hashed directory-record key layout.
func hashedKeyFormat(ctx uint64) bool {
	return ctx&(types.ApfsIncompatCaseInsensitive|types.ApfsIncompatNormalizationInsensitive) != 0
}

func caseFolds(ctx uint64) bool {
	return ctx&types.ApfsIncompatCaseInsensitive != 0
}

// FsKeyCompare is the filesystem-key comparator: it groups every record
// belonging to the same object id together (by rotating the 8-byte
// header left 4 bits so the low nibble carries the record type, per
// spec.md §4.4), then breaks ties per record type. ctx carries the
// volume's incompatible-feature flags so DIR_REC ordering matches the
// volume's name-equivalence policy.
func FsKeyCompare(search, entry []byte, ctx uint64) (int, error) {
	sHdr, err := keyHeader(search)
	if err != nil {
		return 0, err
	}
	eHdr, err := keyHeader(entry)
	if err != nil {
		return 0, err
	}

	sRot, eRot := rotl4(sHdr.ObjIdAndType), rotl4(eHdr.ObjIdAndType)
	if sRot != eRot {
		if sRot < eRot {
			return -1, nil
		}
		return 1, nil
	}

	switch types.JObjTypes(recordType(sHdr)) {
	case types.ApfsTypeDirRec:
		return compareDirRecKeys(search, entry, ctx)
	case types.ApfsTypeFileExtent:
		return compareTrailingU64(search, entry, 8)
	case types.ApfsTypeXattr:
		return compareXattrKeys(search, entry)
	default:
		return 0, nil
	}
}

func compareTrailingU64(search, entry []byte, off int) (int, error) {
	if len(search) < off+8 || len(entry) < off+8 {
		return 0, nil
	}
	s := types.LE.Uint64(search[off : off+8])
	e := types.LE.Uint64(entry[off : off+8])
	switch {
	case s < e:
		return -1, nil
	case s > e:
		return 1, nil
	default:
		return 0, nil
	}
}

func compareDirRecKeys(search, entry []byte, ctx uint64) (int, error) {
	if hashedKeyFormat(ctx) {
		if len(search) < 12 || len(entry) < 12 {
			return 0, apfserr.Wrap(apfserr.InvalidFormat, "volume.compareDirRecKeys", "", "hashed dir_rec key too short")
		}
		sHash := types.LE.Uint32(search[8:12]) &^ types.JDrecLenMask
		eHash := types.LE.Uint32(entry[8:12]) &^ types.JDrecLenMask
		switch {
		case sHash < eHash:
			return -1, nil
		case sHash > eHash:
			return 1, nil
		}
		sName := nulTerminatedName(search[12:])
		eName := nulTerminatedName(entry[12:])
		return compareBytes(sName, eName), nil
	}

	if len(search) < 10 || len(entry) < 10 {
		return 0, apfserr.Wrap(apfserr.InvalidFormat, "volume.compareDirRecKeys", "", "plain dir_rec key too short")
	}
	sName := nulTerminatedName(search[10:])
	eName := nulTerminatedName(entry[10:])
	if caseFolds(ctx) {
		return unormalize.Compare(string(sName), string(eName), true), nil
	}
	return compareBytes(sName, eName), nil
}

func compareXattrKeys(search, entry []byte) (int, error) {
	if len(search) < 10 || len(entry) < 10 {
		return 0, apfserr.Wrap(apfserr.InvalidFormat, "volume.compareXattrKeys", "", "xattr key too short")
	}
	sName := nulTerminatedName(search[10:])
	eName := nulTerminatedName(entry[10:])
	return compareBytes(sName, eName), nil
}

func nulTerminatedName(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// FextKeyCompare orders sealed-volume file-extent keys lexicographically
// by (private_id, logical_addr), per spec.md §4.4.
func FextKeyCompare(search, entry []byte, _ uint64) (int, error) {
	if len(search) < 16 || len(entry) < 16 {
		return 0, apfserr.Wrap(apfserr.InvalidFormat, "volume.FextKeyCompare", "", "fext key shorter than 16 bytes")
	}
	sID := types.LE.Uint64(search[0:8])
	eID := types.LE.Uint64(entry[0:8])
	if sID != eID {
		if sID < eID {
			return -1, nil
		}
		return 1, nil
	}
	sAddr := types.LE.Uint64(search[8:16])
	eAddr := types.LE.Uint64(entry[8:16])
	switch {
	case sAddr < eAddr:
		return -1, nil
	case sAddr > eAddr:
		return 1, nil
	default:
		return 0, nil
	}
}
