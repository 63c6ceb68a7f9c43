package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	indexName string
	indexID   int64
)

func init() {
	rootCmd.AddCommand(indexCmd, reindexCmd, listCmd, deleteCmd)
	indexCmd.Flags().StringVar(&indexName, "name", "", "filename to store (default: base name of the file)")
	indexCmd.Flags().Int64Var(&indexID, "id", 0, "document id to create or replace (default: next free id)")
}

var indexCmd = &cobra.Command{
	Use:   "index [file|dir]",
	Short: "Index a text document or a directory of them",
	Long: `Embed a text document and store it with its content preview.

A directory is walked for .txt, .md and .rst files. Paths matched by
.locketignore or .gitignore at its root are skipped.

Examples:
  # Index a file
  locket index handbook.txt

  # Index a directory tree
  locket index ./policies

  # Index stdin under a chosen name, replacing document 7
  cat notes.md | locket index --name notes.md --id 7 -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Recompute embeddings and previews for every stored document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.reindex(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int{"reindexed": n})
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			records, err := a.store.List(ctx)
			if err != nil {
				return err
			}
			type entry struct {
				ID             int64  `json:"id"`
				Filename       string `json:"filename"`
				ContentPreview string `json:"content_preview"`
			}
			out := make([]entry, len(records))
			for i, r := range records {
				out[i] = entry{ID: r.ID, Filename: r.Filename, ContentPreview: r.ContentPreview}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.Delete(ctx, id); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
		})
	},
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	if path != "" && path != "-" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.indexTree(ctx, path)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		}
	}
	content, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	name := indexName
	if name == "" {
		name = filepath.Base(displayName(path))
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		rec, err := a.index(ctx, indexID, name, content)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			ID             int64     `json:"id"`
			Filename       string    `json:"filename"`
			Embedding      []float32 `json:"embedding"`
			ContentPreview string    `json:"content_preview"`
		}{rec.ID, rec.Filename, rec.Embedding, rec.ContentPreview})
	})
}
