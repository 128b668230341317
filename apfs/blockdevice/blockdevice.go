// Package blockdevice provides the size-bounded, read-only, randomly
// addressable byte store every higher layer reads through.
package blockdevice

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/deploymenttheory/go-apfs/apfs/apfserr"
)

// Device is the contract every block source satisfies: a raw device file,
// a GPT-bearing whole-disk file (after apfs/partition locates the
// container's byte range), or an in-memory fixture for tests.
type Device interface {
	// ReadAt reads len(buf) bytes starting at byteOffset. It must be
	// safe to call concurrently from multiple goroutines against
	// disjoint or overlapping ranges: implementations use positional
	// reads, never a shared cursor.
	ReadAt(buf []byte, byteOffset int64) error

	// Size reports the device's total byte length.
	Size() int64

	// SectorSize reports the logical sector size, used only by
	// partition-map parsing; 512 unless the device knows otherwise.
	SectorSize() int
}

// FileDevice backs Device with an *os.File, using pread(2) via
// golang.org/x/sys/unix so concurrent readers never race over a shared
// file offset.
type FileDevice struct {
	f          *os.File
	size       int64
	sectorSize int
}

// OpenFile opens path read-only and wraps it as a Device.
func OpenFile(path string) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apfserr.Wrap(apfserr.IOError, "blockdevice.OpenFile", path, err.Error())
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apfserr.Wrap(apfserr.IOError, "blockdevice.OpenFile", path, err.Error())
	}
	size := info.Size()
	if size == 0 {
		// Block/char special files report zero from Stat; fall back to
		// seeking to the end, which works for raw disk devices.
		if end, serr := f.Seek(0, os.SEEK_END); serr == nil {
			size = end
		}
	}
	return &FileDevice{f: f, size: size, sectorSize: 512}, nil
}

// NewFileDeviceRegion wraps an already-open file whose device size is
// length: reads are bounded to the file's first length bytes. No starting
// offset is applied, so a region that begins partway into the file is
// not addressable through it.
func NewFileDeviceRegion(f *os.File, length int64) *FileDevice {
	return &FileDevice{f: f, size: length, sectorSize: 512}
}

func (d *FileDevice) ReadAt(buf []byte, byteOffset int64) error {
	if byteOffset < 0 || byteOffset+int64(len(buf)) > d.size {
		return apfserr.Wrap(apfserr.OutOfRange, "blockdevice.ReadAt", "", "read beyond device size")
	}
	n, err := unix.Pread(int(d.f.Fd()), buf, byteOffset)
	if err != nil {
		return apfserr.Wrap(apfserr.IOError, "blockdevice.ReadAt", fmt.Sprintf("offset=%d", byteOffset), err.Error())
	}
	if n != len(buf) {
		return apfserr.Wrap(apfserr.IOError, "blockdevice.ReadAt", fmt.Sprintf("offset=%d", byteOffset), "short read")
	}
	return nil
}

func (d *FileDevice) Size() int64 { return d.size }

func (d *FileDevice) SectorSize() int { return d.sectorSize }

// Close releases the underlying file handle.
func (d *FileDevice) Close() error { return d.f.Close() }

// MemDevice is an in-memory Device fixture for tests.
type MemDevice struct {
	data       []byte
	sectorSize int
}

// NewMemDevice wraps data (not copied) as a Device.
func NewMemDevice(data []byte) *MemDevice {
	return &MemDevice{data: data, sectorSize: 512}
}

func (d *MemDevice) ReadAt(buf []byte, byteOffset int64) error {
	if byteOffset < 0 || byteOffset+int64(len(buf)) > int64(len(d.data)) {
		return apfserr.Wrap(apfserr.OutOfRange, "blockdevice.ReadAt", "", "read beyond device size")
	}
	copy(buf, d.data[byteOffset:byteOffset+int64(len(buf))])
	return nil
}

func (d *MemDevice) Size() int64 { return int64(len(d.data)) }

func (d *MemDevice) SectorSize() int { return d.sectorSize }
