package extract

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/services"
)

// Handle resolves the requested volume and extracts SourcePath (a file
// or a directory tree) to DestPath.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if req.ContainerPath == "" {
		return nil, app.NewError(app.ErrCodeInvalidInput, "container path is required", nil)
	}
	if req.DestPath == "" {
		return nil, app.NewError(app.ErrCodeInvalidInput, "destination path is required", nil)
	}

	containerSvc, err := services.GetContainerService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get container service", err)
	}
	filesystemSvc, err := services.GetFilesystemService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get filesystem service", err)
	}
	extractionSvc, err := services.GetExtractionService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get extraction service", err)
	}

	ctx.Progress("Opening container...", 5)
	info, err := containerSvc.OpenContainer(ctx.Context, req.ContainerPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to open container", err)
	}

	volID, err := resolveVolumeID(info, req.Target)
	if err != nil {
		return nil, app.NewError(app.ErrCodeVolumeNotFound, "failed to resolve volume", err)
	}

	sourcePath := req.SourcePath
	if sourcePath == "" {
		sourcePath = "/"
	}

	options := services.ExtractionOptions{
		PreserveTimestamps: req.PreserveMetadata,
		OverwriteExisting:  req.OverwriteExisting,
		CreateDirectories:  true,
	}

	ctx.Progress("Inspecting source...", 15)
	fileInfo, err := filesystemSvc.GetFileInfo(ctx.Context, req.ContainerPath, volID, sourcePath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "failed to resolve source path", err)
	}

	estimated, err := extractionSvc.EstimateExtractionSize(ctx.Context, req.ContainerPath, volID, sourcePath, req.Recursive)
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to estimate extraction size", err)
	}

	isDir := fileInfo.Type == "directory"

	ctx.Progress("Extracting...", 40)
	if isDir {
		if err := extractionSvc.ExtractDirectory(ctx.Context, req.ContainerPath, volID, sourcePath, req.DestPath, options); err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to extract directory", err)
		}
	} else {
		if err := extractionSvc.ExtractFile(ctx.Context, req.ContainerPath, volID, sourcePath, req.DestPath, options); err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to extract file", err)
		}
	}

	if req.Verify && !isDir {
		ctx.Progress("Verifying...", 90)
		st, err := os.Stat(req.DestPath)
		if err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "extraction verification failed: destination unreadable", err)
		}
		if uint64(st.Size()) != fileInfo.Size {
			return nil, app.NewError(app.ErrCodeContainerAccess,
				fmt.Sprintf("extraction verification failed: expected %d bytes, got %d", fileInfo.Size, st.Size()), nil)
		}
	}

	ctx.Progress("Complete", 100)
	return &Response{
		SourcePath:    sourcePath,
		DestPath:      req.DestPath,
		BytesExpected: estimated,
		IsDirectory:   isDir,
	}, nil
}

func resolveVolumeID(info services.ContainerInfo, target app.VolumeTarget) (uint64, error) {
	if target.VolumeName != "" {
		for _, v := range info.Volumes {
			if v.Name == target.VolumeName {
				return v.ObjectID, nil
			}
		}
		return 0, fmt.Errorf("no volume named %q", target.VolumeName)
	}
	if target.VolumeID != 0 {
		return target.VolumeID, nil
	}
	if len(info.Volumes) == 0 {
		return 0, fmt.Errorf("container has no volumes")
	}
	return info.Volumes[0].ObjectID, nil
}
