package apfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apfs/apfs/blockdevice"
)

func TestBoundDeviceIdentityWhenUnscoped(t *testing.T) {
	dev := blockdevice.NewMemDevice(make([]byte, 1024))

	bounded, err := boundDevice(dev, 0, 0)
	require.NoError(t, err)
	require.Same(t, dev, bounded)
}

func TestBoundDeviceScopesReads(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	dev := blockdevice.NewMemDevice(data)

	bounded, err := boundDevice(dev, 512, 256)
	require.NoError(t, err)
	require.Equal(t, int64(256), bounded.Size())

	buf := make([]byte, 4)
	require.NoError(t, bounded.ReadAt(buf, 0))
	require.Equal(t, data[512:516], buf)
}

func TestBoundDeviceRejectsOutOfRangeRegion(t *testing.T) {
	dev := blockdevice.NewMemDevice(make([]byte, 1024))

	_, err := boundDevice(dev, 900, 200)
	require.Error(t, err)
}

func TestRegionDeviceRejectsReadPastLength(t *testing.T) {
	dev := blockdevice.NewMemDevice(make([]byte, 1024))
	bounded, err := boundDevice(dev, 0, 512)
	require.NoError(t, err)

	buf := make([]byte, 16)
	err = bounded.ReadAt(buf, 500)
	require.Error(t, err)
}

func TestTrimNameStripsTrailingNuls(t *testing.T) {
	b := make([]byte, 16)
	copy(b, "Macintosh HD")
	require.Equal(t, "Macintosh HD", trimName(b))
}
