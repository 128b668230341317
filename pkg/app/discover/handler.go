package discover

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/services"
)

// Handle processes a discovery request against a real, mounted container.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Starting file discovery in: %s", req.ContainerPath))
	ctx.Progress("Opening container...", 5)

	logSearchCriteria(ctx, req)

	containerSvc, err := services.GetContainerService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get container service", err)
	}
	filesystemSvc, err := services.GetFilesystemService()
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to get filesystem service", err)
	}

	info, err := containerSvc.OpenContainer(ctx.Context, req.ContainerPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to open container", err)
	}

	ctx.Progress("Resolving volume...", 15)
	volInfo, err := resolveVolumeTarget(info, req.Target)
	if err != nil {
		return nil, app.NewError(app.ErrCodeVolumeNotFound, "failed to resolve volume target", err)
	}

	ctx.Progress("Scanning filesystem...", 25)

	minBytes, maxBytes, err := sizeBounds(req)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "invalid size bound", err)
	}
	modAfter, modBefore, err := dateBounds(req)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "invalid date bound", err)
	}

	searchPath := "/"
	pattern := req.NamePattern

	found, err := filesystemSvc.FindFiles(ctx.Context, req.ContainerPath, volInfo.ObjectID, searchPath, pattern, 0)
	if err != nil {
		return nil, app.NewError(app.ErrCodeContainerAccess, "failed to search filesystem", err)
	}

	ctx.Progress("Filtering results...", 75)

	var files []FileResult
	for _, f := range found {
		if !matchesCriteria(f, req, minBytes, maxBytes, modAfter, modBefore) {
			continue
		}
		files = append(files, toFileResult(f, volInfo.ObjectID))
	}

	response := &Response{
		Files:      files,
		TotalFound: len(files),
		VolumeInfo: VolumeInfo{
			ID:            volInfo.ObjectID,
			Name:          volInfo.Name,
			Role:          volInfo.Role,
			Encrypted:     volInfo.Encrypted,
			CaseSensitive: volInfo.CaseSensitive,
		},
	}
	response.SearchTime = time.Since(startTime)
	response.SearchQuery = createSearchQuery(req)

	ctx.Progress("Processing results...", 90)

	if len(response.Files) > req.MaxResults {
		response.Files = response.Files[:req.MaxResults]
		response.Truncated = true
	}

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Discovery completed: found %d files in %v", response.TotalFound, response.SearchTime))

	return response, nil
}

// resolveVolumeTarget picks the volume named by target, defaulting to
// slot 0 when the target names neither an id nor a name.
func resolveVolumeTarget(info services.ContainerInfo, target app.VolumeTarget) (services.VolumeInfo, error) {
	if target.VolumeName != "" {
		for _, v := range info.Volumes {
			if v.Name == target.VolumeName {
				return v, nil
			}
		}
		return services.VolumeInfo{}, fmt.Errorf("no volume named %q", target.VolumeName)
	}
	if target.VolumeID != 0 {
		for _, v := range info.Volumes {
			if v.ObjectID == target.VolumeID {
				return v, nil
			}
		}
		return services.VolumeInfo{}, fmt.Errorf("no volume with ID %d", target.VolumeID)
	}
	if len(info.Volumes) == 0 {
		return services.VolumeInfo{}, fmt.Errorf("container has no volumes")
	}
	return info.Volumes[0], nil
}

func sizeBounds(req *Request) (min, max int64, err error) {
	if req.MinSize != "" {
		min, err = ParseSize(req.MinSize)
		if err != nil {
			return 0, 0, err
		}
	}
	if req.MaxSize != "" {
		max, err = ParseSize(req.MaxSize)
		if err != nil {
			return 0, 0, err
		}
	}
	return min, max, nil
}

func dateBounds(req *Request) (after, before time.Time, err error) {
	if req.ModifiedAfter != "" {
		after, err = time.Parse("2006-01-02", req.ModifiedAfter)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if req.ModifiedBefore != "" {
		before, err = time.Parse("2006-01-02", req.ModifiedBefore)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return after, before, nil
}

func matchesCriteria(f services.FileInfo, req *Request, minBytes, maxBytes int64, modAfter, modBefore time.Time) bool {
	if req.NameRegex != "" {
		expr := req.NameRegex
		if !req.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil || !re.MatchString(f.Name) {
			return false
		}
	}
	if req.CaseSensitive && req.NamePattern != "" {
		if strings.ContainsAny(req.NamePattern, "*?[") {
			if ok, _ := path.Match(req.NamePattern, f.Name); !ok {
				return false
			}
		} else if !strings.Contains(f.Name, req.NamePattern) {
			return false
		}
	}

	if len(req.Extensions) > 0 {
		ext := strings.TrimPrefix(filepath.Ext(f.Name), ".")
		matched := false
		for _, e := range req.Extensions {
			if strings.EqualFold(e, ext) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if minBytes > 0 && int64(f.Size) < minBytes {
		return false
	}
	if maxBytes > 0 && int64(f.Size) > maxBytes {
		return false
	}
	if !modAfter.IsZero() && f.Modified.Before(modAfter) {
		return false
	}
	if !modBefore.IsZero() && f.Modified.After(modBefore) {
		return false
	}
	return true
}

func toFileResult(f services.FileInfo, volumeID uint64) FileResult {
	return FileResult{
		Path:        f.Path,
		Name:        f.Name,
		Size:        int64(f.Size),
		Modified:    f.Modified,
		Created:     f.Created,
		Type:        f.Type,
		VolumeID:    volumeID,
		InodeID:     f.InodeID,
		Permissions: fmt.Sprintf("%#o", f.Mode),
		Owner:       fmt.Sprintf("%d", f.Owner),
		Group:       fmt.Sprintf("%d", f.Group),
		Extension:   strings.TrimPrefix(filepath.Ext(f.Name), "."),
		Compressed:  f.Compressed,
	}
}

// logSearchCriteria logs the search criteria for verbose output
func logSearchCriteria(ctx *app.Context, req *Request) {
	if !ctx.Verbose {
		return
	}

	ctx.Log("Search criteria:")
	if !req.Target.IsEmpty() {
		ctx.Log("  " + req.Target.String())
	}
	if req.NamePattern != "" {
		ctx.Log(fmt.Sprintf("  Name pattern: %s", req.NamePattern))
	}
	if req.NameRegex != "" {
		ctx.Log(fmt.Sprintf("  Name regex: %s", req.NameRegex))
	}
	if len(req.Extensions) > 0 {
		ctx.Log(fmt.Sprintf("  Extensions: %s", strings.Join(req.Extensions, ", ")))
	}
	if req.ContentSearch != "" {
		ctx.Log(fmt.Sprintf("  Content search: \"%s\"", req.ContentSearch))
	}
	if req.MinSize != "" || req.MaxSize != "" {
		ctx.Log(fmt.Sprintf("  Size range: %s - %s", req.MinSize, req.MaxSize))
	}
	if req.IncludeDeleted {
		ctx.Log("  Including deleted files")
	}
}

// createSearchQuery creates a SearchQuery from the request
func createSearchQuery(req *Request) SearchQuery {
	return SearchQuery{
		NamePattern:    req.NamePattern,
		NameRegex:      req.NameRegex,
		Extensions:     req.Extensions,
		CaseSensitive:  req.CaseSensitive,
		MinSize:        req.MinSize,
		MaxSize:        req.MaxSize,
		ModifiedAfter:  req.ModifiedAfter,
		ModifiedBefore: req.ModifiedBefore,
		ContentSearch:  req.ContentSearch,
		IncludeDeleted: req.IncludeDeleted,
		MaxResults:     req.MaxResults,
	}
}
