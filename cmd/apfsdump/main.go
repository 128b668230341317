// Command apfsdump is a thin example binary wired directly against the
// apfs mount API: mount a container, mount one of its volumes, list a
// directory, and dump an extended attribute. It exists to demonstrate
// the package surface outside of the discover/list/extract CLI tree.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/deploymenttheory/go-apfs/apfs"
	"github.com/deploymenttheory/go-apfs/apfs/types"
)

func main() {
	containerPath := flag.String("container", "", "path to the APFS container (raw disk, partition, or image)")
	volumeName := flag.String("volume", "", "volume name to mount (defaults to the first occupied slot)")
	dirPath := flag.String("path", "/", "directory to list")
	xattrName := flag.String("xattr", "", "extended attribute name to dump from the first file found")
	flag.Parse()

	if *containerPath == "" {
		fmt.Fprintln(os.Stderr, "usage: apfsdump -container <path> [-volume name] [-path /dir] [-xattr name]")
		os.Exit(2)
	}

	if err := run(*containerPath, *volumeName, *dirPath, *xattrName); err != nil {
		fmt.Fprintf(os.Stderr, "apfsdump: %v\n", err)
		os.Exit(1)
	}
}

func run(containerPath, volumeName, dirPath, xattrName string) error {
	container, err := apfs.MountFromPath(containerPath, 0)
	if err != nil {
		return fmt.Errorf("mounting container: %w", err)
	}
	defer container.Unmount()

	slot, err := findVolumeSlot(container, volumeName)
	if err != nil {
		return err
	}

	vol, err := container.MountVolume(slot, "", 0)
	if err != nil {
		return fmt.Errorf("mounting volume: %w", err)
	}

	dirID := types.RootDirInoNum
	for _, part := range strings.Split(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		d, err := vol.LookupName(dirID, part)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", dirPath, err)
		}
		dirID = d.FileID
	}

	entries, err := vol.ListDirectory(dirID)
	if err != nil {
		return fmt.Errorf("listing %q: %w", dirPath, err)
	}

	for _, e := range entries {
		fmt.Printf("%d\t%s\n", e.FileID, e.Name)
	}

	if xattrName != "" && len(entries) > 0 {
		data, err := vol.GetXattr(entries[0].FileID, xattrName)
		if err != nil {
			return fmt.Errorf("reading xattr %q on %q: %w", xattrName, entries[0].Name, err)
		}
		fmt.Printf("\n%s@%s: %d bytes\n%s\n", entries[0].Name, xattrName, len(data), data)
	}

	return nil
}

// findVolumeSlot returns the first occupied volume slot, or the slot
// matching name when one is given.
func findVolumeSlot(container *apfs.Container, name string) (int, error) {
	for i := 0; i < container.MaxVolumeSlots(); i++ {
		vi, err := container.GetVolumeInfo(i)
		if err != nil {
			continue
		}
		if name == "" || vi.Name == name {
			return i, nil
		}
	}
	if name != "" {
		return 0, fmt.Errorf("no volume named %q", name)
	}
	return 0, fmt.Errorf("container has no volumes")
}
