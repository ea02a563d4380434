package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pspoerri/asc2tiles/internal/encode"
	"github.com/pspoerri/asc2tiles/internal/gridref"
	"github.com/pspoerri/asc2tiles/internal/store"
	"github.com/pspoerri/asc2tiles/internal/tile"
)

var (
	showDB         string
	showPreviewDir string
)

var showCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Print a stored tile as JSON",
	Long: `Print a stored tile as JSON.

With --preview-dir the tile is rebuilt from the height and land previews
written by "process --preview-dir" instead of being read from the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if showPreviewDir != "" {
			return showPreview(cmd, args[0])
		}

		path := cfg.Store.Path
		if cmd.Flags().Changed("db") {
			path = showDB
		}
		if path == "" {
			return fmt.Errorf("no store configured (set store.path or --db)")
		}

		s, err := store.OpenSQLite(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		t, err := s.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeTileJSON(cmd, t)
	},
}

func showPreview(cmd *cobra.Command, ref string) error {
	id, err := gridref.Neighbor(ref, 0, 0)
	if err != nil {
		return err
	}
	heights, land, err := encode.ReadPreview(showPreviewDir, id, cfg.Preview.Format)
	if err != nil {
		return fmt.Errorf("reading previews: %w", err)
	}
	return writeTileJSON(cmd, tile.New(id, cfg.Process.SquareSize, heights, land))
}

func writeTileJSON(cmd *cobra.Command, t *tile.Tile) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func init() {
	showCmd.Flags().StringVar(&showDB, "db", "", "SQLite database path (overrides store.path)")
	showCmd.Flags().StringVar(&showPreviewDir, "preview-dir", "", "Rebuild the tile from previews in this directory (mask format from preview.format)")
}
