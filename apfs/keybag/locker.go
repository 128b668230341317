// Package keybag decrypts container and volume keybags and derives
// per-volume encryption keys from a user password, per the container and
// recs keybag layering APFS uses to protect the volume encryption key.
package keybag

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	"github.com/deploymenttheory/go-apfs/apfs/checksum"
	apfscrypto "github.com/deploymenttheory/go-apfs/apfs/crypto"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Tag values recognized in a keybag_entry_t's ke_tag field.
const (
	TagVolumeKey            = 2
	TagVolumeUnlockRecords  = 3
	TagVolumePassphraseHint = 4
)

// Entry is one decoded keybag_entry_t record.
type Entry struct {
	UUID types.UUID
	Tag  uint16
	Data []byte
}

// Locker is the decrypted, parsed contents of a keybag block (either the
// container keybag or a per-volume recs keybag).
type Locker struct {
	Version uint16
	Entries []Entry
}

// lockerHeaderSize is sizeof(kb_locker_t) before the entries array:
// version(2) + nkeys(2) + nbytes(4) + padding(8).
const lockerHeaderSize = 16

// entryHeaderSize is sizeof(keybag_entry_t) before the key data:
// uuid(16) + tag(2) + keylen(2) + padding(4).
const entryHeaderSize = 24

// Load reads, decrypts, and parses a keybag extent. start/count are block
// addresses/length in blocks as recorded in a container superblock's
// nx_keylocker or a volume's reference to a recs keybag. tweakKey is used
// as both AES-XTS keys per spec.md §4.3 (the container UUID for the
// container keybag, the volume UUID for a recs keybag).
func Load(dev blockdevice.Device, blockSize int, start types.Paddr, count uint64, tweakKey types.UUID) (*Locker, error) {
	buf := make([]byte, int(count)*blockSize)
	if err := dev.ReadAt(buf, int64(start)*int64(blockSize)); err != nil {
		return nil, fmt.Errorf("keybag.Load: %w", err)
	}

	key := tweakKey[:]
	if err := apfscrypto.DecryptXTS(key, key, 0, buf); err != nil {
		return nil, fmt.Errorf("keybag.Load: decrypt: %w", err)
	}

	if !checksum.VerifyBlock(buf[:blockSize]) {
		return nil, apfserr.Wrap(apfserr.ChecksumMismatch, "keybag.Load", "", "keybag block checksum mismatch")
	}

	payload := buf[32:] // past the obj_phys_t header, spans all blocks of the extent
	return parseLocker(payload)
}

func parseLocker(payload []byte) (*Locker, error) {
	if len(payload) < lockerHeaderSize {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseLocker", "", "payload too small")
	}
	version := binary.LittleEndian.Uint16(payload[0:2])
	nkeys := binary.LittleEndian.Uint16(payload[2:4])
	nbytes := binary.LittleEndian.Uint32(payload[4:8])

	body := payload[lockerHeaderSize:]
	if uint32(len(body)) < nbytes {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseLocker", "", "truncated keybag entries")
	}
	body = body[:nbytes]

	entries := make([]Entry, 0, nkeys)
	off := 0
	for i := uint16(0); i < nkeys; i++ {
		if off+entryHeaderSize > len(body) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseLocker", "", "entry header overruns payload")
		}
		uuid := types.ReadUUID(body, off)
		tag := binary.LittleEndian.Uint16(body[off+16 : off+18])
		keylen := binary.LittleEndian.Uint16(body[off+18 : off+20])
		dataStart := off + entryHeaderSize
		if dataStart+int(keylen) > len(body) {
			return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseLocker", "", "entry data overruns payload")
		}
		data := append([]byte{}, body[dataStart:dataStart+int(keylen)]...)
		entries = append(entries, Entry{UUID: uuid, Tag: tag, Data: data})

		// Entries are 16-byte aligned.
		advance := entryHeaderSize + int(keylen)
		advance = (advance + 15) &^ 15
		off += advance
	}

	return &Locker{Version: version, Entries: entries}, nil
}

// FindByUUIDAndTag returns the first entry matching uuid and tag.
func (l *Locker) FindByUUIDAndTag(uuid types.UUID, tag uint16) (Entry, bool) {
	for _, e := range l.Entries {
		if e.UUID == uuid && e.Tag == tag {
			return e, true
		}
	}
	return Entry{}, false
}
