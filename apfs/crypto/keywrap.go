package crypto

import (
	"encoding/binary"
	"fmt"
)

// DefaultIV is the RFC 3394 default integrity check value, 0xA6A6...A6.
var DefaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// KeyUnwrap implements RFC 3394 key unwrap (AES key wrap, also used for
// AES-128 and AES-256 wrapping keys here). cipherText must be a multiple
// of 8 bytes and at least 16. It returns the recovered plaintext and the
// recovered IV; the caller compares the IV against DefaultIV to decide
// whether unwrap succeeded — RFC 3394 has no separate authentication tag.
func KeyUnwrap(kek []byte, cipherText []byte) (plainText []byte, recoveredIV [8]byte, err error) {
	if len(cipherText) < 16 || len(cipherText)%8 != 0 {
		return nil, recoveredIV, fmt.Errorf("crypto.KeyUnwrap: ciphertext length %d invalid", len(cipherText))
	}
	n := len(cipherText)/8 - 1

	var a [8]byte
	copy(a[:], cipherText[0:8])

	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], cipherText[8*(i+1):8*(i+2)])
	}

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			var tBytes [8]byte
			binary.BigEndian.PutUint64(tBytes[:], t)

			var block [16]byte
			for k := range a {
				block[k] = a[k] ^ tBytes[k]
			}
			copy(block[8:], r[i-1][:])

			dec, decErr := AESDecryptECB(kek, block[:])
			if decErr != nil {
				return nil, recoveredIV, fmt.Errorf("crypto.KeyUnwrap: %w", decErr)
			}
			copy(a[:], dec[0:8])
			copy(r[i-1][:], dec[8:16])
		}
	}

	plainText = make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		plainText = append(plainText, r[i][:]...)
	}
	return plainText, a, nil
}

// KeyWrap implements RFC 3394 key wrap, the encrypt-side complement of
// KeyUnwrap. Not exercised by the read-only mount path but kept alongside
// KeyUnwrap since both halves share the same round structure.
func KeyWrap(kek []byte, plainText []byte) ([]byte, error) {
	if len(plainText)%8 != 0 || len(plainText) == 0 {
		return nil, fmt.Errorf("crypto.KeyWrap: plaintext length %d invalid", len(plainText))
	}
	n := len(plainText) / 8

	a := DefaultIV

	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], plainText[8*i:8*i+8])
	}

	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			var block [16]byte
			copy(block[0:8], a[:])
			copy(block[8:], r[i-1][:])

			enc, err := AESEncryptECB(kek, block[:])
			if err != nil {
				return nil, fmt.Errorf("crypto.KeyWrap: %w", err)
			}

			t := uint64(n*j + i)
			var tBytes [8]byte
			binary.BigEndian.PutUint64(tBytes[:], t)
			for k := range a {
				a[k] = enc[k] ^ tBytes[k]
			}
			copy(r[i-1][:], enc[8:16])
		}
	}

	out := make([]byte, 0, 8+n*8)
	out = append(out, a[:]...)
	for i := 0; i < n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}
