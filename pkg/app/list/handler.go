package list

import (
	"fmt"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/services"
)

// Handle opens the container named by req and lists whichever of
// volumes, snapshots, or files the request asks for.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if req.ContainerPath == "" {
		return nil, app.NewError(app.ErrCodeInvalidInput, "container path is required", nil)
	}
	if !req.Volumes && !req.Snapshots && !req.Files {
		req.Volumes = true
	}

	containerSvc, err := services.GetContainerService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get container service", err)
	}

	ctx.Progress("Opening container...", 10)
	info, err := containerSvc.OpenContainer(ctx.Context, req.ContainerPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to open container", err)
	}

	resp := &Response{}

	if req.Volumes {
		for _, v := range info.Volumes {
			resp.Volumes = append(resp.Volumes, VolumeEntry{
				ID:            v.ObjectID,
				Name:          v.Name,
				Role:          v.Role,
				Encrypted:     v.Encrypted,
				CaseSensitive: v.CaseSensitive,
			})
		}
	}

	if req.Snapshots {
		volID, err := resolveVolumeID(info, req.Target)
		if err != nil {
			return nil, app.NewError(app.ErrCodeVolumeNotFound, "failed to resolve volume", err)
		}
		volumeSvc, err := services.GetVolumeService()
		if err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get volume service", err)
		}
		ctx.Progress("Listing snapshots...", 50)
		snaps, err := volumeSvc.ListSnapshots(ctx.Context, req.ContainerPath, volID)
		if err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to list snapshots", err)
		}
		for _, s := range snaps {
			resp.Snapshots = append(resp.Snapshots, SnapshotEntry{Xid: s.ObjectID, Name: s.Name, CreatedAt: s.CreatedAt})
		}
	}

	if req.Files {
		volID, err := resolveVolumeID(info, req.Target)
		if err != nil {
			return nil, app.NewError(app.ErrCodeVolumeNotFound, "failed to resolve volume", err)
		}
		filesystemSvc, err := services.GetFilesystemService()
		if err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get filesystem service", err)
		}
		path := req.Path
		if path == "" {
			path = "/"
		}
		ctx.Progress(fmt.Sprintf("Listing %s...", path), 50)
		files, err := filesystemSvc.ListDirectory(ctx.Context, req.ContainerPath, volID, path, req.Recursive)
		if err != nil {
			return nil, app.NewError(app.ErrCodeContainerAccess, "failed to list directory", err)
		}
		for _, f := range files {
			resp.Files = append(resp.Files, FileEntry{InodeID: f.InodeID, Name: f.Name, Path: f.Path, Type: f.Type, Size: f.Size})
		}
	}

	ctx.Progress("Complete", 100)
	return resp, nil
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
