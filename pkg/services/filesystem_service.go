package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/deploymenttheory/go-apfs/apfs"
	"github.com/deploymenttheory/go-apfs/apfs/fsops"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

// volumeOpener is implemented by containerService; filesystemService,
// volumeService and extractionService reach through it rather than
// re-deriving a mounted volume from a path/id pair themselves.
type volumeOpener interface {
	openVolume(ctx context.Context, containerPath string, volumeID uint64) (*apfs.Volume, error)
}

// filesystemService implements the FilesystemService interface on top
// of apfs/fsops, reached through a mounted apfs.Volume.
type filesystemService struct {
	containerService ContainerService
}

// NewFilesystemService creates a new filesystem service instance
func NewFilesystemService(containerService ContainerService) FilesystemService {
	return &filesystemService{containerService: containerService}
}

func (fs *filesystemService) volume(ctx context.Context, containerPath string, volumeID uint64) (*apfs.Volume, error) {
	vo, ok := fs.containerService.(volumeOpener)
	if !ok {
		return nil, fmt.Errorf("filesystem service requires a volume-opening container service")
	}
	return vo.openVolume(ctx, containerPath, volumeID)
}

// resolvePath walks dirPath component by component from the volume
// root (inode 2), returning the inode id of the final component.
func resolvePath(vol *apfs.Volume, dirPath string) (uint64, error) {
	id := types.RootDirInoNum
	dirPath = strings.Trim(dirPath, "/")
	if dirPath == "" {
		return id, nil
	}
	for _, part := range strings.Split(dirPath, "/") {
		if part == "" {
			continue
		}
		entry, err := vol.LookupName(id, part)
		if err != nil {
			return 0, fmt.Errorf("resolving %q: %w", part, err)
		}
		id = entry.FileID
	}
	return id, nil
}

func fileInfoFromInode(in *fsops.Inode, name, fullPath string) FileInfo {
	typ := "file"
	switch {
	case in.IsDir():
		typ = "directory"
	case in.IsSymlink():
		typ = "symlink"
	}

	size := uint64(0)
	if ds, ok := in.Dstream(); ok {
		size = ds.Size
	}

	return FileInfo{
		InodeID:    in.ID,
		Name:       name,
		Path:       fullPath,
		Type:       typ,
		Size:       size,
		Mode:       uint32(in.Mode),
		Owner:      uint32(in.Owner),
		Group:      uint32(in.Group),
		Created:    in.CreatedAt(),
		Modified:   in.ModifiedAt(),
		Accessed:   in.AccessedAt(),
		Changed:    in.ChangedAt(),
		HardLinks:  in.NchildrenOrNlink,
		Compressed: in.IsCompressed(),
	}
}

// ListDirectory lists files and directories at the specified path
func (fs *filesystemService) ListDirectory(ctx context.Context, containerPath string, volumeID uint64, dirPath string, recursive bool) ([]FileInfo, error) {
	vol, err := fs.volume(ctx, containerPath, volumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume: %w", err)
	}

	parentID, err := resolvePath(vol, dirPath)
	if err != nil {
		return nil, err
	}

	entries, err := vol.ListDirectory(parentID)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", dirPath, err)
	}

	base := strings.TrimRight(dirPath, "/")
	var files []FileInfo
	for _, e := range entries {
		in, err := vol.GetInode(e.FileID)
		if err != nil {
			continue
		}
		files = append(files, fileInfoFromInode(in, e.Name, base+"/"+e.Name))
	}

	if recursive {
		var all []FileInfo
		for _, f := range files {
			all = append(all, f)
			if f.Type == "directory" {
				children, err := fs.ListDirectory(ctx, containerPath, volumeID, f.Path, true)
				if err != nil {
					continue
				}
				all = append(all, children...)
			}
		}
		return all, nil
	}

	return files, nil
}

// GetFileInfo retrieves detailed information about a specific file
func (fs *filesystemService) GetFileInfo(ctx context.Context, containerPath string, volumeID uint64, filePath string) (FileInfo, error) {
	vol, err := fs.volume(ctx, containerPath, volumeID)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to open volume: %w", err)
	}

	id, err := resolvePath(vol, filePath)
	if err != nil {
		return FileInfo{}, err
	}
	in, err := vol.GetInode(id)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading inode for %q: %w", filePath, err)
	}

	return fileInfoFromInode(in, lastComponent(filePath), filePath), nil
}

func lastComponent(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// GetDirectoryInfo retrieves directory information with statistics
func (fs *filesystemService) GetDirectoryInfo(ctx context.Context, containerPath string, volumeID uint64, dirPath string, includeChildren bool) (DirectoryInfo, error) {
	fileInfo, err := fs.GetFileInfo(ctx, containerPath, volumeID, dirPath)
	if err != nil {
		return DirectoryInfo{}, err
	}

	dirInfo := DirectoryInfo{FileInfo: fileInfo, Recursive: includeChildren}

	if includeChildren {
		children, err := fs.ListDirectory(ctx, containerPath, volumeID, dirPath, false)
		if err != nil {
			return dirInfo, fmt.Errorf("failed to list children: %w", err)
		}
		dirInfo.Children = children
		dirInfo.ChildCount = uint64(len(children))
		for _, child := range children {
			dirInfo.TotalSize += child.Size
		}
	}

	return dirInfo, nil
}

// FindFiles searches for files matching pattern under searchPath,
// walking the directory tree and glob-matching each entry's name.
func (fs *filesystemService) FindFiles(ctx context.Context, containerPath string, volumeID uint64, searchPath string, pattern string, maxResults int) ([]FileInfo, error) {
	entries, err := fs.ListDirectory(ctx, containerPath, volumeID, searchPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", searchPath, err)
	}

	var results []FileInfo
	for _, e := range entries {
		matched, _ := matchGlob(pattern, e.Name)
		if matched {
			results = append(results, e)
			if maxResults > 0 && len(results) >= maxResults {
				break
			}
		}
	}
	return results, nil
}

func matchGlob(pattern, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	if strings.ContainsAny(pattern, "*?[") {
		return path.Match(strings.ToLower(pattern), strings.ToLower(name))
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern)), nil
}

// GetInode retrieves file information by inode ID
func (fs *filesystemService) GetInode(ctx context.Context, containerPath string, volumeID uint64, inodeID uint64) (FileInfo, error) {
	vol, err := fs.volume(ctx, containerPath, volumeID)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to open volume: %w", err)
	}
	in, err := vol.GetInode(inodeID)
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading inode %d: %w", inodeID, err)
	}
	return fileInfoFromInode(in, fmt.Sprintf("inode_%d", inodeID), ""), nil
}

// WalkFilesystem performs a depth-first traversal of the filesystem
func (fs *filesystemService) WalkFilesystem(ctx context.Context, containerPath string, volumeID uint64, rootPath string, walkFunc func(FileInfo) error) error {
	files, err := fs.ListDirectory(ctx, containerPath, volumeID, rootPath, false)
	if err != nil {
		return fmt.Errorf("failed to list %q: %w", rootPath, err)
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := walkFunc(file); err != nil {
			return err
		}

		if file.Type == "directory" {
			if err := fs.WalkFilesystem(ctx, containerPath, volumeID, file.Path, walkFunc); err != nil {
				return err
			}
		}
	}

	return nil
}

// CheckAccess reports whether filePath resolves to a readable inode. The
// volume is mounted without a password, so an encrypted volume fails to
// mount and CheckAccess returns that error.
func (fs *filesystemService) CheckAccess(ctx context.Context, containerPath string, volumeID uint64, filePath string) (bool, error) {
	vol, err := fs.volume(ctx, containerPath, volumeID)
	if err != nil {
		return false, fmt.Errorf("failed to open volume: %w", err)
	}
	id, err := resolvePath(vol, filePath)
	if err != nil {
		return false, nil
	}
	if _, err := vol.GetInode(id); err != nil {
		return false, nil
	}
	return true, nil
}
