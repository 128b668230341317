package list

import (
	"time"

	"github.com/deploymenttheory/go-apfs/pkg/app"
)

// Request selects what to list within a container: its volumes, a
// volume's snapshots, or the files under a path in one volume.
type Request struct {
	ContainerPath string
	Target        app.VolumeTarget

	Volumes   bool
	Snapshots bool
	Files     bool

	Path      string
	Recursive bool
}

// Response carries whichever of Volumes/Snapshots/Files was requested.
type Response struct {
	Volumes   []VolumeEntry   `json:"volumes,omitempty"`
	Snapshots []SnapshotEntry `json:"snapshots,omitempty"`
	Files     []FileEntry     `json:"files,omitempty"`
}

// VolumeEntry describes one volume in a container.
type VolumeEntry struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Encrypted     bool   `json:"encrypted"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// SnapshotEntry describes one snapshot of a volume.
type SnapshotEntry struct {
	Xid       uint64    `json:"xid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FileEntry describes one file or directory under a listed path.
type FileEntry struct {
	InodeID uint64 `json:"inode_id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Size    uint64 `json:"size"`
}
