// Package unormalize implements APFS's filename normalization, case
// folding, and hashing (spec.md §4.10): NFD decomposition followed by an
// optional case fold, then a 22-bit CRC-32C hash packed with the name's
// byte length for hashed-volume directory keys.
package unormalize

import (
	"encoding/binary"
	"hash/crc32"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// NameLenHashMask is the bit mask isolating the packed name length inside
// a hashed directory-record key's name_len_and_hash field.
const NameLenHashMask = 0x3FF

// NormalizeFold decomposes s into NFD and, if caseFold, folds case,
// returning the code point sequence APFS hashes and compares names by.
// The original implementation folds case with a table built from
// Unicode's default case folding plus a handful of APFS-specific
// exceptions; unicode.ToLower after NFD decomposition reproduces that
// table for the overwhelming majority of code points and is what this
// read-only driver uses instead of carrying the exception table.
func NormalizeFold(name string, caseFold bool) []rune {
	decomposed := norm.NFD.String(name)
	runes := []rune(decomposed)
	if !caseFold {
		return runes
	}
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	return folded
}

// HashFilename computes the 22-bit CRC-32C hash of name's normalize-
// folded UTF-32 form, packed with name's byte length (including its NUL
// terminator) into the low 10 bits, matching a hashed volume's
// j_drec_hashed_key_t.name_len_and_hash field.
func HashFilename(name string, caseFold bool) uint32 {
	folded := NormalizeFold(name, caseFold)
	buf := make([]byte, len(folded)*4)
	for i, r := range folded {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(r))
	}
	crc := crc32.Checksum(buf, castagnoliTable)
	nameLen := uint32(len(name) + 1)
	return ((crc & 0x3FFFFF) << 10) | (nameLen & NameLenHashMask)
}

// Equal reports whether two names are the same name under APFS's
// normalize-fold equivalence.
func Equal(a, b string, caseFold bool) bool {
	return Compare(a, b, caseFold) == 0
}

// Compare orders two names the way a case-insensitive or normalization-
// insensitive volume's directory-record comparator does: by
// normalize-folded code point sequence, not by raw UTF-8 bytes.
func Compare(a, b string, caseFold bool) int {
	fa := NormalizeFold(a, caseFold)
	fb := NormalizeFold(b, caseFold)
	n := len(fa)
	if len(fb) < n {
		n = len(fb)
	}
	for i := 0; i < n; i++ {
		if fa[i] != fb[i] {
			if fa[i] < fb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(fa) < len(fb):
		return -1
	case len(fa) > len(fb):
		return 1
	default:
		return 0
	}
}
