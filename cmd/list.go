package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apfs/pkg/app"
	"github.com/deploymenttheory/go-apfs/pkg/app/list"
)

var (
	// Volume/snapshot selection (list command only)
	listVolumeID   uint64
	listVolumeName string
	listSnapshot   string

	// What to list
	listVolumes   bool
	listSnapshots bool
	listFiles     bool

	// Path options (when listing files)
	listPath      string
	listRecursive bool
)

var listCmd = &cobra.Command{
	Use:   "list [container-path]",
	Short: "List volumes, snapshots, or files",
	Long: `List contents of APFS containers.

Examples:
  # List all volumes
  go-apfs list /dev/disk2 --volumes

  # List files in a specific volume
  go-apfs list /dev/disk2 --volume-name "Data" --files --path /Users

  # List snapshots
  go-apfs list /dev/disk2 --volume-id 1 --snapshots`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Uint64Var(&listVolumeID, "volume-id", 0, "volume ID to list from")
	listCmd.Flags().StringVar(&listVolumeName, "volume-name", "", "volume name to list from")
	listCmd.Flags().StringVar(&listSnapshot, "snapshot", "", "snapshot name (not applied; the live volume is listed)")

	listCmd.Flags().BoolVar(&listVolumes, "volumes", false, "list volumes")
	listCmd.Flags().BoolVar(&listSnapshots, "snapshots", false, "list snapshots")
	listCmd.Flags().BoolVar(&listFiles, "files", false, "list files")

	listCmd.Flags().StringVarP(&listPath, "path", "p", "/", "path to list")
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "recursive listing")

	listCmd.MarkFlagsMutuallyExclusive("volume-id", "volume-name")
}

func runList(containerPath string) error {
	ctx := app.NewContext()
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()

	request := &list.Request{
		ContainerPath: containerPath,
		Target: app.VolumeTarget{
			VolumeID:   listVolumeID,
			VolumeName: listVolumeName,
			Snapshot:   listSnapshot,
		},
		Volumes:   listVolumes,
		Snapshots: listSnapshots,
		Files:     listFiles,
		Path:      listPath,
		Recursive: listRecursive,
	}

	response, err := list.Handle(ctx, request)
	if err != nil {
		return err
	}

	return list.FormatOutput(response, ctx.OutputFormat)
}
