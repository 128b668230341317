package keybag

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
)

// derTLV is one decoded DER tag-length-value triple. The keybag blobs use
// only definite-form lengths and a handful of tags (INTEGER, OCTET STRING,
// a context-specific SEQUENCE [3], and the universal SEQUENCE), so this is
// a minimal reader rather than a general DER/BER parser — per spec.md §9,
// full ASN.1 compliance is explicitly out of scope.
type derTLV struct {
	Tag     byte
	Content []byte
	Rest    []byte
}

func readDERTLV(data []byte) (derTLV, error) {
	if len(data) < 2 {
		return derTLV{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.readDERTLV", "", "truncated TLV header")
	}
	tag := data[0]
	lenByte := data[1]

	var length int
	var headerLen int
	if lenByte&0x80 == 0 {
		length = int(lenByte)
		headerLen = 2
	} else {
		nLenBytes := int(lenByte &^ 0x80)
		if nLenBytes == 0 || nLenBytes > 4 || len(data) < 2+nLenBytes {
			return derTLV{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.readDERTLV", "", "unsupported long-form length")
		}
		length = 0
		for i := 0; i < nLenBytes; i++ {
			length = length<<8 | int(data[2+i])
		}
		headerLen = 2 + nLenBytes
	}

	if headerLen+length > len(data) {
		return derTLV{}, apfserr.Wrap(apfserr.InvalidFormat, "keybag.readDERTLV", "", "TLV content overruns buffer")
	}

	return derTLV{
		Tag:     tag,
		Content: data[headerLen : headerLen+length],
		Rest:    data[headerLen+length:],
	}, nil
}

// readDERSequence requires data to be a single top-level SEQUENCE (or
// application/context constructed tag) and returns its contents.
func readDERSequence(data []byte, wantTag byte) ([]byte, error) {
	tlv, err := readDERTLV(data)
	if err != nil {
		return nil, err
	}
	if tlv.Tag != wantTag {
		return nil, apfserr.Wrap(apfserr.InvalidFormat, "keybag.readDERSequence", "", fmt.Sprintf("tag 0x%02x, want 0x%02x", tlv.Tag, wantTag))
	}
	return tlv.Content, nil
}
