package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2SHA256 derives keyLen bytes from password and salt using
// PBKDF2-HMAC-SHA256, the KDF the KEK blob's wrapping spec calls for.
func PBKDF2SHA256(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}

// PBKDF2SHA1 derives keyLen bytes using PBKDF2-HMAC-SHA1, kept alongside
// the SHA-256 form since some older KEK blobs specify SHA-1.
func PBKDF2SHA1(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha1.New)
}

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SHA256 computes SHA-256(data).
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
