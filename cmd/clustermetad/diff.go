package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/clustermeta/pkg/docformat"
	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff the latest gateway documents of two data directories",
	Long: `Reads the latest gateway file from --from and --to, reconstructs
both roots, and prints the structural delta the consensus layer would ship
to a follower to bring it from one to the other.`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("from", "", "Data directory holding the earlier root (required)")
	diffCmd.Flags().String("to", "", "Data directory holding the later root (required)")
	diffCmd.MarkFlagRequired("from")
	diffCmd.MarkFlagRequired("to")
}

func runDiff(cmd *cobra.Command, args []string) error {
	fromDir, _ := cmd.Flags().GetString("from")
	toDir, _ := cmd.Flags().GetString("to")

	prev, err := docformat.ReadLatestGatewayFile(fromDir)
	if err != nil {
		return fmt.Errorf("read --from gateway file: %w", err)
	}
	curr, err := docformat.ReadLatestGatewayFile(toDir)
	if err != nil {
		return fmt.Errorf("read --to gateway file: %w", err)
	}

	d := metadata.DiffAgainst(prev, curr)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
