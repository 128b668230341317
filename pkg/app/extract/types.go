package extract

import (
	"github.com/deploymenttheory/go-apfs/pkg/app"
)

// Request describes an extraction of a source path (file or directory,
// default the volume root) from a mounted volume to a local destination.
type Request struct {
	ContainerPath string
	Target        app.VolumeTarget

	SourcePath string
	DestPath   string

	Recursive         bool
	PreserveMetadata  bool
	PreservePerms     bool
	OverwriteExisting bool
	Verify            bool
}

// Response summarizes a completed extraction.
type Response struct {
	SourcePath    string `json:"source_path"`
	DestPath      string `json:"dest_path"`
	BytesExpected uint64 `json:"bytes_expected"`
	IsDirectory   bool   `json:"is_directory"`
}
