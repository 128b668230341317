package keybag

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
	apfscrypto "github.com/deploymenttheory/go-apfs/apfs/crypto"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

const (
	derTagSequence        = 0x30
	derTagInteger         = 0x02
	derTagOctetString     = 0x04
	derTagContextSeq3Impl = 0xA3 // constructed, context-specific, tag 3
)

// envelope is the blob_envelope shape from spec.md §4.3:
// SEQUENCE { unk:INTEGER, hmac:OCTET STRING(32), salt:OCTET STRING(8), payload:ANY }.
type envelope struct {
	hmac    []byte
	salt    []byte
	payload []byte
}

// hmacKeyPrefix is the literal prefix hashed together with the envelope's
// salt to derive the HMAC-SHA256 verification key.
var hmacKeyPrefix = []byte("APFS-KEK\x01\x16\x20\x17\x15\x05")

func parseEnvelope(data []byte) (envelope, error) {
	seq, err := readDERSequence(data, derTagSequence)
	if err != nil {
		return envelope{}, fmt.Errorf("keybag.parseEnvelope: %w", err)
	}

	unkTLV, err := readDERTLV(seq)
	if err != nil || unkTLV.Tag != derTagInteger {
		return envelope{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseEnvelope", "", "missing unk integer")
	}

	hmacTLV, err := readDERTLV(unkTLV.Rest)
	if err != nil || hmacTLV.Tag != derTagOctetString {
		return envelope{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseEnvelope", "", "missing hmac octet string")
	}

	saltTLV, err := readDERTLV(hmacTLV.Rest)
	if err != nil || saltTLV.Tag != derTagOctetString {
		return envelope{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.parseEnvelope", "", "missing salt octet string")
	}

	return envelope{
		hmac:    hmacTLV.Content,
		salt:    saltTLV.Content,
		payload: saltTLV.Rest,
	}, nil
}

// verify checks the envelope's stored HMAC against HMAC-SHA256 over
// payload, using key = SHA-256(hmacKeyPrefix || salt), per spec.md §4.3.
func (e envelope) verify() error {
	key := apfscrypto.SHA256(append(append([]byte{}, hmacKeyPrefix...), e.salt...))
	computed := apfscrypto.HMACSHA256(key, e.payload)
	if !constantTimeEqual(computed, e.hmac) {
		return apfserr.Wrap(apfserr.PermissionDenied, "keybag.envelope.verify", "", "hmac mismatch")
	}
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// WrappingSpec describes how a wrapped key blob is protected, decoded from
// the unk82 field spec.md §4.3 names.
type WrappingSpec struct {
	IsAES128 bool
}

// KEKBlob is the decoded payload of a KEK envelope.
type KEKBlob struct {
	UUID       types.UUID
	Wrapping   WrappingSpec
	WrappedKEK []byte // 40 bytes
	Iterations int
	Salt       []byte // 16 bytes
}

// VEKBlob is the decoded payload of a VEK envelope: same outer shape as
// KEKBlob but with no iterations/salt.
type VEKBlob struct {
	UUID       types.UUID
	Wrapping   WrappingSpec
	WrappedVEK []byte // 40 bytes
}

// parseKEKPayload walks the context [3]-tagged sequence spec.md §4.3
// describes: unk80, uuid, unk82 (wrapping-spec), wrapped_kek(40),
// iterations, salt(16), in that fixed order.
func parseKEKPayload(payload []byte) (KEKBlob, error) {
	content, err := readDERSequence(payload, derTagContextSeq3Impl)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: %w", err)
	}

	unk80, err := readDERTLV(content)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: unk80: %w", err)
	}
	uuidTLV, err := readDERTLV(unk80.Rest)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: uuid: %w", err)
	}
	unk82, err := readDERTLV(uuidTLV.Rest)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: unk82: %w", err)
	}
	wrappedTLV, err := readDERTLV(unk82.Rest)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: wrapped_kek: %w", err)
	}
	itersTLV, err := readDERTLV(wrappedTLV.Rest)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: iterations: %w", err)
	}
	saltTLV, err := readDERTLV(itersTLV.Rest)
	if err != nil {
		return KEKBlob{}, fmt.Errorf("keybag.parseKEKPayload: salt: %w", err)
	}

	return KEKBlob{
		UUID:       types.ReadUUID(uuidTLV.Content, 0),
		Wrapping:   decodeWrappingSpec(unk82.Content),
		WrappedKEK: wrappedTLV.Content,
		Iterations: decodeDERInt(itersTLV.Content),
		Salt:       saltTLV.Content,
	}, nil
}

// parseVEKPayload mirrors parseKEKPayload for the VEK shape: unk80, uuid,
// unk82, wrapped_vek(40), with no iterations/salt trailer.
func parseVEKPayload(payload []byte) (VEKBlob, error) {
	content, err := readDERSequence(payload, derTagContextSeq3Impl)
	if err != nil {
		return VEKBlob{}, fmt.Errorf("keybag.parseVEKPayload: %w", err)
	}

	unk80, err := readDERTLV(content)
	if err != nil {
		return VEKBlob{}, fmt.Errorf("keybag.parseVEKPayload: unk80: %w", err)
	}
	uuidTLV, err := readDERTLV(unk80.Rest)
	if err != nil {
		return VEKBlob{}, fmt.Errorf("keybag.parseVEKPayload: uuid: %w", err)
	}
	unk82, err := readDERTLV(uuidTLV.Rest)
	if err != nil {
		return VEKBlob{}, fmt.Errorf("keybag.parseVEKPayload: unk82: %w", err)
	}
	wrappedTLV, err := readDERTLV(unk82.Rest)
	if err != nil {
		return VEKBlob{}, fmt.Errorf("keybag.parseVEKPayload: wrapped_vek: %w", err)
	}

	return VEKBlob{
		UUID:       types.ReadUUID(uuidTLV.Content, 0),
		Wrapping:   decodeWrappingSpec(unk82.Content),
		WrappedVEK: wrappedTLV.Content,
	}, nil
}

// decodeWrappingSpec reads the flags byte spec.md §4.3 says selects
// AES-256 (0x00 or 0x10) vs AES-128 (0x02). The wrapping-spec TLV content
// carries the flags as its first byte.
func decodeWrappingSpec(content []byte) WrappingSpec {
	if len(content) == 0 {
		return WrappingSpec{}
	}
	flags := content[0]
	return WrappingSpec{IsAES128: flags == 0x02}
}

func decodeDERInt(content []byte) int {
	var v int
	for _, b := range content {
		v = v<<8 | int(b)
	}
	return v
}
