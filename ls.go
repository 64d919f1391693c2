package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ctera/ctera-edge-mcp/internal/edge"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory on the Edge Filer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	remotePath := ""
	if len(args) > 0 {
		remotePath = args[0]
	}

	return withClient(cmd.Context(), func(ctx context.Context, c *edge.Client) error {
		items, err := c.ListDir(ctx, remotePath)
		if err != nil {
			return fmt.Errorf("listing %q: %w", remotePath, err)
		}

		if flagJSON {
			return printItemsJSON(cmd.OutOrStdout(), items)
		}

		printItemsTable(cmd.OutOrStdout(), items)

		return nil
	})
}

// lsJSONItem is the JSON output schema for a single item in ls output.
type lsJSONItem struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	IsDir      bool   `json:"is_dir"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

func printItemsJSON(w io.Writer, items []edge.Item) error {
	out := make([]lsJSONItem, 0, len(items))
	for i := range items {
		row := lsJSONItem{
			Name:  items[i].Name,
			Path:  items[i].Path,
			Size:  items[i].Size,
			IsDir: items[i].IsDir,
		}

		if !items[i].ModifiedAt.IsZero() {
			row.ModifiedAt = items[i].ModifiedAt.UTC().Format("2006-01-02T15:04:05Z")
		}

		out = append(out, row)
	}

	return writeJSON(w, out)
}

// printItemsTable prints directories first, then files, each alphabetically.
func printItemsTable(w io.Writer, items []edge.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}

		return items[i].Name < items[j].Name
	})

	rows := make([][]string, 0, len(items))

	for i := range items {
		name, size := items[i].Name, formatSize(items[i].Size)
		if items[i].IsDir {
			name += "/"
			size = "-"
		}

		modified := ""
		if !items[i].ModifiedAt.IsZero() {
			modified = formatTime(items[i].ModifiedAt)
		}

		rows = append(rows, []string{name, size, modified})
	}

	printTable(w, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}
