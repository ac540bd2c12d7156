package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/clustermeta/pkg/docformat"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the latest gateway document from a data directory",
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().String("data-dir", "./clustermeta-data", "Data directory containing gateway files")
	dumpCmd.Flags().String("mode", "gateway", "Document view: api, gateway, or snapshot")
}

func runDump(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	modeFlag, _ := cmd.Flags().GetString("mode")

	md, err := docformat.ReadLatestGatewayFile(dataDir)
	if err != nil {
		return fmt.Errorf("read gateway file: %w", err)
	}

	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}

	doc := docformat.ToDocument(md, mode)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func parseMode(s string) (docformat.ContextMode, error) {
	switch s {
	case "api":
		return docformat.API, nil
	case "gateway":
		return docformat.Gateway, nil
	case "snapshot":
		return docformat.Snapshot, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want api, gateway, or snapshot)", s)
	}
}
