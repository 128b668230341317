package fsops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func buildXfBlob(t *testing.T, entries []XField) []byte {
	t.Helper()
	b := make([]byte, 4)
	types.LE.PutUint16(b[0:2], uint16(len(entries)))

	descStart := len(b)
	b = append(b, make([]byte, len(entries)*4)...)
	for i, e := range entries {
		off := descStart + i*4
		b[off] = e.Type
		b[off+1] = e.Flags
		types.LE.PutUint16(b[off+2:off+4], uint16(len(e.Data)))
	}
	for _, e := range entries {
		for len(b)%8 != 0 {
			b = append(b, 0)
		}
		b = append(b, e.Data...)
	}
	types.LE.PutUint16(b[2:4], uint16(len(b)-4))
	return b
}

func TestParseXFieldsRoundTrip(t *testing.T) {
	want := []XField{
		{Type: types.InoExtTypeDocumentId, Flags: 0, Data: []byte{1, 2, 3, 4}},
		{Type: types.InoExtTypeName, Flags: 1, Data: []byte("link-name")},
	}
	blob := buildXfBlob(t, want)

	got, err := ParseXFields(blob)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, want[0].Type, got[0].Type)
	require.Equal(t, want[0].Data, got[0].Data)
	require.Equal(t, want[1].Type, got[1].Type)
	require.Equal(t, want[1].Data, got[1].Data)
}

func TestParseXFieldsEmpty(t *testing.T) {
	got, err := ParseXFields(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindXField(t *testing.T) {
	fields := []XField{{Type: types.InoExtTypeSnapXid, Data: []byte{9}}}
	f, ok := FindXField(fields, types.InoExtTypeSnapXid)
	require.True(t, ok)
	require.Equal(t, []byte{9}, f.Data)

	_, ok = FindXField(fields, types.InoExtTypeRdev)
	require.False(t, ok)
}
