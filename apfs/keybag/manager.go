package keybag

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
	apfscrypto "github.com/deploymenttheory/go-apfs/apfs/crypto"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// Manager loads a container keybag on demand and, per volume, the recs
// keybag it points to, then derives volume encryption keys from a
// password.
type Manager struct {
	dev            blockdevice.Device
	blockSize      int
	containerUUID  types.UUID
	containerStart types.Paddr
	containerCount uint64

	containerLocker *Locker
}

// NewManager describes the container keylocker extent (nx_keylocker) and
// the container's own UUID, used as the container keybag's tweak key.
func NewManager(dev blockdevice.Device, blockSize int, containerUUID types.UUID, start types.Paddr, count uint64) *Manager {
	return &Manager{dev: dev, blockSize: blockSize, containerUUID: containerUUID, containerStart: start, containerCount: count}
}

func (m *Manager) containerKeybag() (*Locker, error) {
	if m.containerLocker != nil {
		return m.containerLocker, nil
	}
	l, err := Load(m.dev, m.blockSize, m.containerStart, m.containerCount, m.containerUUID)
	if err != nil {
		return nil, fmt.Errorf("keybag.Manager.containerKeybag: %w", err)
	}
	m.containerLocker = l
	return l, nil
}

// recsKeybag resolves and loads the per-volume "recs" keybag a container
// keybag's type-3 entry points to.
func (m *Manager) recsKeybag(volumeUUID types.UUID) (*Locker, error) {
	cl, err := m.containerKeybag()
	if err != nil {
		return nil, err
	}
	entry, ok := cl.FindByUUIDAndTag(volumeUUID, TagVolumeUnlockRecords)
	if !ok {
		return nil, apfserr.Wrap(apfserr.NotFound, "keybag.Manager.recsKeybag", volumeUUID.String(), "no recs keybag reference")
	}
	if len(entry.Data) < 16 {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.Manager.recsKeybag", "", "short extent reference")
	}
	start := types.Paddr(types.LE.Uint64(entry.Data[0:8]))
	count := types.LE.Uint64(entry.Data[8:16])

	l, err := Load(m.dev, m.blockSize, start, count, volumeUUID)
	if err != nil {
		return nil, fmt.Errorf("keybag.Manager.recsKeybag: %w", err)
	}
	return l, nil
}

// DeriveVEK implements the password → VEK algorithm in spec.md §4.3: try
// every KEK entry in the recs keybag, unwrap it with a PBKDF2-derived key,
// and accept the first one whose recovered IV matches the RFC 3394
// default; then unwrap the VEK from the container keybag with that KEK.
func (m *Manager) DeriveVEK(volumeUUID types.UUID, password string) ([]byte, error) {
	recs, err := m.recsKeybag(volumeUUID)
	if err != nil {
		return nil, err
	}
	cl, err := m.containerKeybag()
	if err != nil {
		return nil, err
	}

	vekEntry, ok := cl.FindByUUIDAndTag(volumeUUID, TagVolumeKey)
	if !ok {
		return nil, apfserr.Wrap(apfserr.NotFound, "keybag.Manager.DeriveVEK", volumeUUID.String(), "no VEK entry in container keybag")
	}
	vekEnv, err := parseEnvelope(vekEntry.Data)
	if err != nil {
		return nil, fmt.Errorf("keybag.Manager.DeriveVEK: vek envelope: %w", err)
	}
	if err := vekEnv.verify(); err != nil {
		return nil, fmt.Errorf("keybag.Manager.DeriveVEK: vek envelope: %w", err)
	}
	vekBlob, err := parseVEKPayload(vekEnv.payload)
	if err != nil {
		return nil, fmt.Errorf("keybag.Manager.DeriveVEK: vek payload: %w", err)
	}

	pw := []byte(password)

	for _, kekEntry := range recs.Entries {
		if kekEntry.Tag != TagVolumeUnlockRecords {
			continue
		}
		env, err := parseEnvelope(kekEntry.Data)
		if err != nil {
			continue
		}
		if err := env.verify(); err != nil {
			continue
		}
		kekBlob, err := parseKEKPayload(env.payload)
		if err != nil {
			continue
		}

		dk := apfscrypto.PBKDF2SHA256(pw, kekBlob.Salt, kekBlob.Iterations, 32)

		recoveredKEK, recoveredIV, err := apfscrypto.KeyUnwrap(dk, kekBlob.WrappedKEK)
		if err != nil || recoveredIV != apfscrypto.DefaultIV {
			continue
		}

		recoveredVEK, vekIV, err := apfscrypto.KeyUnwrap(recoveredKEK, vekBlob.WrappedVEK)
		if err != nil || vekIV != apfscrypto.DefaultIV {
			continue
		}

		if vekBlob.Wrapping.IsAES128 {
			// CoreStorage-converted volume: the recovered 16 bytes are
			// the low half of the 256-bit XTS key; the high half is
			// derived from the low half and the VEK's own UUID.
			high := apfscrypto.SHA256(append(append([]byte{}, recoveredVEK...), vekBlob.UUID[:]...))[:16]
			return append(append([]byte{}, recoveredVEK...), high...), nil
		}
		return recoveredVEK, nil
	}

	return nil, apfserr.Wrap(apfserr.PermissionDenied, "keybag.Manager.DeriveVEK", volumeUUID.String(), "no KEK unwrapped with the given password")
}

// GetPasswordHint reads a volume's type-4 password hint entry from its
// recs keybag, if present.
func (m *Manager) GetPasswordHint(volumeUUID types.UUID) (string, bool, error) {
	recs, err := m.recsKeybag(volumeUUID)
	if err != nil {
		return "", false, err
	}
	entry, ok := recs.FindByUUIDAndTag(volumeUUID, TagVolumePassphraseHint)
	if !ok {
		return "", false, nil
	}
	return string(entry.Data), true, nil
}
