// Command clustermetad demonstrates the cluster metadata core end to end:
// a single-node Raft group committing catalog mutations through
// pkg/clusterfsm, served read-only over pkg/catalogapi.
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/clustermeta/pkg/clog"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clustermetad",
	Short:   "Cluster metadata core demo server and inspection tools",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("clustermetad version %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	clog.Init(clog.Config{
		Level:      clog.Level(level),
		JSONOutput: jsonOut,
	})
}
