package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global output flags only
	verbose      bool
	quiet        bool
	outputFormat string
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "go-apfs",
	Short: "Cross-platform APFS filesystem explorer and extractor",
	Long: `go-apfs is a cross-platform, read-only command-line tool for exploring, 
extracting, recovering, and validating Apple File System (APFS) volumes.

Works directly with raw disks, partitions, or .dmg images without mounting
or relying on macOS. Ideal for data recovery, forensic analysis, and 
backup verification.

Commands:
  discover    Find files by name, extension, size, or date
  list        List volumes, snapshots, or files
  extract     Extract files, directories, or volumes
  verify      Verify container checkpoint integrity`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.go-apfs.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	color.NoColor = color.NoColor || !isatty.IsTerminal(os.Stdout.Fd())
}

// initConfig runs after flag parsing. When a config file is found, its
// output value (or an OUTPUT environment variable) sets the output format
// unless --output was given on the command line; no other setting is
// taken from it.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".go-apfs")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil && !rootCmd.PersistentFlags().Changed("output") {
		if v := viper.GetString("output"); v != "" {
			outputFormat = v
		}
	}
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
