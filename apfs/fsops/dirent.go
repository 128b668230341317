package fsops

import (
	"errors"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/btree"
	"github.com/deploymenttheory/go-apfs/apfs/types"
	"github.com/deploymenttheory/go-apfs/apfs/unormalize"
)

// DirEntry is a decoded directory record: a name plus the inode it names.
type DirEntry struct {
	Name      string
	FileID    uint64
	DateAdded uint64
	Flags     uint16
	Ext       []XField
}

// FileType returns the entry's DREC_TYPE_MASK bits, matching the target
// inode's S_IFMT nibble.
func (d DirEntry) FileType() types.ModeT {
	return types.ModeT(d.Flags) & types.ModeT(types.DrecTypeMask)
}

// hashedKeyFormat and caseFolds mirror apfs/volume's incompatible-feature
// checks so fsops can build the same key shape the tree's comparator
// expects without importing apfs/volume (which itself depends on fsops'
// sibling packages through the Mount API facade, not the reverse).
func hashedKeyFormat(ctx uint64) bool {
	return ctx&(types.ApfsIncompatCaseInsensitive|types.ApfsIncompatNormalizationInsensitive) != 0
}

func caseFolds(ctx uint64) bool {
	return ctx&types.ApfsIncompatCaseInsensitive != 0
}

// ListDirectory returns every directory record whose parent is parentID,
// in key order, by GE-iterating from the start of that object id's
// DIR_REC run. ctx is the volume's incompatible-feature flags (Ctx on the
// mounted tree).
func ListDirectory(tree *btree.Tree, parentID uint64, ctx uint64) ([]DirEntry, error) {
	start := buildKey(types.ApfsTypeDirRec, parentID)

	k, v, err := tree.Lookup(start, btree.ModeGE)
	var entries []DirEntry
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
		if id != parentID || typ != types.ApfsTypeDirRec {
			break
		}
		entry, derr := decodeDirRec(k, v, ctx)
		if derr != nil {
			return nil, derr
		}
		entries = append(entries, entry)
		k, v, err = tree.Lookup(k, btree.ModeGT)
	}
	return entries, nil
}

// LookupName resolves a single name under parentID, building the hashed or
// plain key format the volume's incompatible features select.
func LookupName(tree *btree.Tree, parentID uint64, name string, ctx uint64) (*DirEntry, error) {
	var key []byte
	if hashedKeyFormat(ctx) {
		hash := unormalize.HashFilename(name, caseFolds(ctx))
		key = dirRecHashedKey(parentID, hash, name)
	} else {
		key = dirRecPlainKey(parentID, name)
	}

	k, v, err := tree.Lookup(key, btree.ModeEQ)
	if err != nil {
		return nil, err
	}
	entry, err := decodeDirRec(k, v, ctx)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func decodeDirRec(key, val []byte, ctx uint64) (DirEntry, error) {
	name, err := dirRecName(key, ctx)
	if err != nil {
		return DirEntry{}, err
	}
	if len(val) < 18 {
		return DirEntry{}, apfserr.Wrap(apfserr.InvalidFormat, "fsops.decodeDirRec", "", "value shorter than j_drec_val_t")
	}
	le := types.LE
	ext, err := ParseXFields(val[18:])
	if err != nil {
		return DirEntry{}, err
	}
	return DirEntry{
		Name:      name,
		FileID:    le.Uint64(val[0:8]),
		DateAdded: le.Uint64(val[8:16]),
		Flags:     le.Uint16(val[16:18]),
		Ext:       ext,
	}, nil
}

func dirRecName(key []byte, ctx uint64) (string, error) {
	if hashedKeyFormat(ctx) {
		if len(key) < 12 {
			return "", apfserr.Wrap(apfserr.InvalidFormat, "fsops.dirRecName", "", "hashed dir_rec key too short")
		}
		return string(nulTerminated(key[12:])), nil
	}
	if len(key) < 10 {
		return "", apfserr.Wrap(apfserr.InvalidFormat, "fsops.dirRecName", "", "plain dir_rec key too short")
	}
	return string(nulTerminated(key[10:])), nil
}

func nulTerminated(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
