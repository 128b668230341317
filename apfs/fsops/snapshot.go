package fsops

import (
	"errors"
	"time"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

const snapMetadataFixedSize = 44

// SnapshotRecord is a decoded (SNAP_METADATA, xid) record: the snapshot's
// transaction id plus its j_snap_metadata_val_t fields.
type SnapshotRecord struct {
	Xid uint64
	types.JSnapMetadataValT
	CreatedAt time.Time
	Name      string
}

func decodeSnapMetadata(xid uint64, raw []byte) (SnapshotRecord, error) {
	if len(raw) < snapMetadataFixedSize {
		return SnapshotRecord{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeSnapMetadata", "", "value shorter than j_snap_metadata_val_t")
	}
	le := types.LE
	v := types.JSnapMetadataValT{
		ExtentrefTreeOid:  types.OidT(le.Uint64(raw[0:8])),
		SblockOid:         types.OidT(le.Uint64(raw[8:16])),
		CreateTime:        le.Uint64(raw[16:24]),
		ChangeTime:        le.Uint64(raw[24:32]),
		Inum:              le.Uint64(raw[32:40]),
		ExtentrefTreeType: le.Uint32(raw[40:44]),
	}
	rest := raw[snapMetadataFixedSize:]
	if len(rest) >= 6 {
		v.Flags = le.Uint32(rest[0:4])
		v.NameLen = le.Uint16(rest[4:6])
		nameEnd := 6 + int(v.NameLen)
		if nameEnd <= len(rest) && v.NameLen > 0 {
			v.Name = rest[6:nameEnd]
		}
	}

	name := string(v.Name)
	if n := len(name); n > 0 && name[n-1] == 0 {
		name = name[:n-1]
	}

	return SnapshotRecord{
		Xid:               xid,
		JSnapMetadataValT: v,
		CreatedAt:         time.Unix(0, int64(v.CreateTime)),
		Name:              name,
	}, nil
}

// ListSnapshots enumerates every (SNAP_METADATA, xid) record in tree, in
// transaction-id order, by GE-iterating from the start of the type's run.
func ListSnapshots(tree *btree.Tree) ([]SnapshotRecord, error) {
	start := buildKey(types.ApfsTypeSnapMetadata, 0)

	k, v, err := tree.Lookup(start, btree.ModeGE)
	var recs []SnapshotRecord
	for {
		if err != nil {
			if errors.Is(err, apfserr.NotFound) {
				break
			}
			return nil, err
		}
		xid, typ, herr := keyHeader(k)
		if herr != nil {
			return nil, herr
		}
		if typ != types.ApfsTypeSnapMetadata {
			break
		}
		rec, derr := decodeSnapMetadata(xid, v)
		if derr != nil {
			return nil, derr
		}
		recs = append(recs, rec)
		k, v, err = tree.Lookup(k, btree.ModeGT)
	}
	return recs, nil
}
