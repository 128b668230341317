// Package crypto implements the cryptographic primitives the keybag and
// per-block decryption paths need: AES-XTS-128 block decryption, RFC 3394
// key unwrap, and the hash/KDF primitives PBKDF2 is built from. Nothing
// here keeps state between calls; every function is a pure transform.
package crypto

import (
	"crypto/aes"
	"fmt"

	"golang.org/x/crypto/xts"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
)

// SectorSize is the sub-block unit AES-XTS tweaks are computed per, per
// spec: cs_factor = block_size / 512.
const SectorSize = 512

// DecryptXTS decrypts data in place, SectorSize at a time, using key1/key2
// as the AES-XTS key pair and startSector as the tweak (sector index) of
// data's first SectorSize-byte unit. len(data) must be a multiple of
// SectorSize.
func DecryptXTS(key1, key2 []byte, startSector uint64, data []byte) error {
	if len(data)%SectorSize != 0 {
		return apfserr.Wrap(apfserr.InvalidFormat, "crypto.DecryptXTS", "", "data not a multiple of sector size")
	}
	key := append(append([]byte{}, key1...), key2...)
	cipher, err := xts.NewCipher(aes.NewCipher, key)
	if err != nil {
		return apfserr.Wrap(apfserr.InvalidFormat, "crypto.DecryptXTS", "", err.Error())
	}
	n := len(data) / SectorSize
	for i := 0; i < n; i++ {
		sector := startSector + uint64(i)
		chunk := data[i*SectorSize : (i+1)*SectorSize]
		cipher.Decrypt(chunk, chunk, sector)
	}
	return nil
}

// DecryptXTSSingleTweak decrypts data exactly as DecryptXTS does: in
// SectorSize units, the first at sector number tweak and each following
// unit at the next sector number, so len(data) must be a multiple of
// SectorSize.
func DecryptXTSSingleTweak(key1, key2 []byte, tweak uint64, data []byte) error {
	return DecryptXTS(key1, key2, tweak, data)
}

// AESDecryptECB decrypts a single 16-byte block with AES-128/192/256,
// selected by the key length, no chaining.
func AESDecryptECB(key, block []byte) ([]byte, error) {
	if len(block) != aes.BlockSize {
		return nil, fmt.Errorf("crypto.AESDecryptECB: block must be %d bytes", aes.BlockSize)
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto.AESDecryptECB: %w", err)
	}
	out := make([]byte, aes.BlockSize)
	c.Decrypt(out, block)
	return out, nil
}

// AESEncryptECB encrypts a single 16-byte block, the complement of
// AESDecryptECB, used internally by key wrap/unwrap.
func AESEncryptECB(key, block []byte) ([]byte, error) {
	if len(block) != aes.BlockSize {
		return nil, fmt.Errorf("crypto.AESEncryptECB: block must be %d bytes", aes.BlockSize)
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto.AESEncryptECB: %w", err)
	}
	out := make([]byte, aes.BlockSize)
	c.Encrypt(out, block)
	return out, nil
}
