package services

import (
	"context"
	"io"
	"time"

	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// ContainerInfo represents basic container metadata
type ContainerInfo struct {
	DevicePath      string
	BlockSize       uint32
	BlockCount      uint64
	VolumeCount     uint32
	CheckpointID    uint64
	Volumes         []VolumeInfo
	SpaceManager    SpaceManagerInfo
	Features        []string
	Encrypted       bool
	CaseInsensitive bool
}

// VolumeInfo represents basic volume metadata
type VolumeInfo struct {
	ObjectID      uint64
	Name          string
	Role          string
	Reserved      uint64
	Quota         uint64
	Allocated     uint64
	FileCount     uint64
	DirCount      uint64
	SnapshotCount uint32
	Encrypted     bool
	Features      []string
	CaseSensitive bool
	LastModified  time.Time
}

// SpaceManagerInfo represents space management information
type SpaceManagerInfo struct {
	BlockSize          uint32
	ChunkCount         uint32
	FreeBlocks         uint64
	UsedBlocks         uint64
	ReservedBlocks     uint64
	FragmentationRatio float64
}

// FileInfo represents detailed file information
type FileInfo struct {
	InodeID       uint64
	Name          string
	Path          string
	Type          string
	Size          uint64
	Blocks        uint64
	Owner         uint32
	Group         uint32
	Mode          uint32
	Created       time.Time
	Modified      time.Time
	Accessed      time.Time
	Changed       time.Time
	Flags         uint64
	HardLinks     int32
	ExtendedAttrs map[string][]byte
	Compressed    bool
	Encrypted     bool
}

// DirectoryInfo represents directory information with statistics
type DirectoryInfo struct {
	FileInfo
	ChildCount uint64
	TotalSize  uint64
	Children   []FileInfo
	Recursive  bool
}

// ExtractionOptions configures extraction behavior
type ExtractionOptions struct {
	PreserveTimestamps bool
	OverwriteExisting  bool
	CreateDirectories  bool
	MaxDepth           int
	IncludeHidden      bool
}

// SnapshotInfo represents snapshot metadata
type SnapshotInfo struct {
	ObjectID  uint64
	Name      string
	CreatedAt time.Time
	VolumeID  uint64
}

// FileSystemStats represents filesystem-level statistics gathered by a
// recursive directory walk, not a full B-tree scan.
type FileSystemStats struct {
	TotalFiles       uint64
	TotalDirectories uint64
	TotalSymlinks    uint64
	TotalSize        uint64
}

// ContainerService provides container-level operations
type ContainerService interface {
	// DiscoverContainers finds APFS containers on accessible devices
	DiscoverContainers(ctx context.Context) ([]ContainerInfo, error)

	// OpenContainer opens a container at the specified path
	OpenContainer(ctx context.Context, devicePath string) (ContainerInfo, error)

	// ReadSuperblock reads and parses the container superblock
	ReadSuperblock(ctx context.Context, devicePath string) (*types.NxSuperblockT, error)

	// ListVolumes enumerates all volumes in the container
	ListVolumes(ctx context.Context, devicePath string) ([]VolumeInfo, error)

	// GetSpaceManagerInfo retrieves space management information
	GetSpaceManagerInfo(ctx context.Context, devicePath string) (SpaceManagerInfo, error)

	// VerifyCheckpoints validates container checkpoints
	VerifyCheckpoints(ctx context.Context, devicePath string) error

	// Close closes the container and releases resources
	Close() error
}

// VolumeService provides volume-level operations
type VolumeService interface {
	// OpenVolume opens a specific volume by ID
	OpenVolume(ctx context.Context, containerPath string, volumeID uint64) (VolumeInfo, error)

	// OpenVolumeByName opens a volume by name
	OpenVolumeByName(ctx context.Context, containerPath string, volumeName string) (VolumeInfo, error)

	// ReadVolumeSuperblock reads the volume superblock
	ReadVolumeSuperblock(ctx context.Context, containerPath string, volumeID uint64) (*types.ApfsSuperblockT, error)

	// GetVolumeStatistics calculates volume statistics from a recursive directory walk
	GetVolumeStatistics(ctx context.Context, containerPath string, volumeID uint64) (FileSystemStats, error)

	// ListSnapshots enumerates volume snapshots
	ListSnapshots(ctx context.Context, containerPath string, volumeID uint64) ([]SnapshotInfo, error)

	// Close closes the volume and releases resources
	Close() error
}

// FilesystemService provides filesystem navigation and operations
type FilesystemService interface {
	// ListDirectory lists files and directories at the specified path
	ListDirectory(ctx context.Context, containerPath string, volumeID uint64, dirPath string, recursive bool) ([]FileInfo, error)

	// GetFileInfo retrieves detailed information about a specific file
	GetFileInfo(ctx context.Context, containerPath string, volumeID uint64, filePath string) (FileInfo, error)

	// GetDirectoryInfo retrieves directory information with statistics
	GetDirectoryInfo(ctx context.Context, containerPath string, volumeID uint64, dirPath string, includeChildren bool) (DirectoryInfo, error)

	// FindFiles searches for files matching specified criteria
	FindFiles(ctx context.Context, containerPath string, volumeID uint64, searchPath string, pattern string, maxResults int) ([]FileInfo, error)

	// GetInode retrieves file information by inode ID
	GetInode(ctx context.Context, containerPath string, volumeID uint64, inodeID uint64) (FileInfo, error)

	// WalkFilesystem performs a depth-first traversal of the filesystem
	WalkFilesystem(ctx context.Context, containerPath string, volumeID uint64, rootPath string, walkFunc func(FileInfo) error) error

	// CheckAccess determines whether a file/directory can be read, given
	// the key material the volume was opened with
	CheckAccess(ctx context.Context, containerPath string, volumeID uint64, filePath string) (bool, error)
}

// ExtractionService provides file and directory extraction
type ExtractionService interface {
	// ExtractFile extracts a single file to the specified destination
	ExtractFile(ctx context.Context, containerPath string, volumeID uint64, filePath string, destPath string, options ExtractionOptions) error

	// ExtractDirectory extracts a directory tree to the specified destination
	ExtractDirectory(ctx context.Context, containerPath string, volumeID uint64, sourcePath string, destPath string, options ExtractionOptions) error

	// StreamFile provides streaming access to file content
	StreamFile(ctx context.Context, containerPath string, volumeID uint64, filePath string) (io.ReadCloser, error)

	// EstimateExtractionSize calculates the total size of an extraction operation
	EstimateExtractionSize(ctx context.Context, containerPath string, volumeID uint64, sourcePath string, recursive bool) (uint64, error)
}
