package fsops

import (
	"errors"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Xattr is a decoded extended attribute: either its data embedded
// directly, or the dstream id to read it from via ReadXattrStream.
type Xattr struct {
	Name       string
	Embedded   bool
	Data       []byte // valid when Embedded
	DstreamID  uint64 // valid when !Embedded
	DataStream types.JDstreamT
}

// ListXattrs returns every extended attribute attached to objID.
func ListXattrs(tree *btree.Tree, objID uint64) ([]Xattr, error) {
	start := buildKey(types.ApfsTypeXattr, objID)

	k, v, err := tree.Lookup(start, btree.ModeGE)
	var out []Xattr
	for {
		if err != nil {
			if errors.Is(err, apfserr.NotFound) {
				break
			}
			return nil, err
		}
		id, typ, herr := keyHeader(k)
		if herr != nil {
			return nil, herr
		}
		if id != objID || typ != types.ApfsTypeXattr {
			break
		}
		x, derr := decodeXattr(k, v)
		if derr != nil {
			return nil, derr
		}
		out = append(out, x)
		k, v, err = tree.Lookup(k, btree.ModeGT)
	}
	return out, nil
}

// GetXattr resolves a single named extended attribute on objID.
func GetXattr(tree *btree.Tree, objID uint64, name string) (*Xattr, error) {
	k, v, err := tree.Lookup(xattrKey(objID, name), btree.ModeEQ)
	if err != nil {
		return nil, err
	}
	x, err := decodeXattr(k, v)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func decodeXattr(key, val []byte) (Xattr, error) {
	if len(key) < 10 {
		return Xattr{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeXattr", "", "xattr key too short")
	}
	name := string(nulTerminated(key[10:]))

	if len(val) < 4 {
		return Xattr{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeXattr", "", "value shorter than j_xattr_val_t")
	}
	le := types.LE
	flags := le.Uint16(val[0:2])
	xdataLen := int(le.Uint16(val[2:4]))

	if types.JXattrFlags(flags)&types.XattrDataEmbedded != 0 {
		if 4+xdataLen > len(val) {
			return Xattr{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeXattr", "", "embedded xattr data runs past value")
		}
		return Xattr{Name: name, Embedded: true, Data: val[4 : 4+xdataLen]}, nil
	}

	if len(val) < 4+8+40 {
		return Xattr{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeXattr", "", "stream xattr value shorter than j_xattr_dstream_t")
	}
	dstreamID := le.Uint64(val[4:12])
	ds := decodeDstream(val[12:52])
	return Xattr{Name: name, Embedded: false, DstreamID: dstreamID, DataStream: ds}, nil
}

func decodeDstream(b []byte) types.JDstreamT {
	le := types.LE
	return types.JDstreamT{
		Size:              le.Uint64(b[0:8]),
		AllocedSize:       le.Uint64(b[8:16]),
		DefaultCryptoId:   le.Uint64(b[16:24]),
		TotalBytesWritten: le.Uint64(b[24:32]),
		TotalBytesRead:    le.Uint64(b[32:40]),
	}
}
