package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/target/kb-assistant-web/internal/adminapi"
	"github.com/target/kb-assistant-web/internal/domain/model"
)

func newDocsCommand(flags *globalFlags) *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Manage knowledge-base documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	docs.AddCommand(
		newDocsListCommand(flags),
		newDocsUploadCommand(flags),
		newDocsVisibilityCommand(flags),
		newDocsDeleteCommand(flags),
		newDocsReembedCommand(flags),
	)
	return docs
}

func newDocsListCommand(flags *globalFlags) *cobra.Command {
	var filter model.DocumentFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			docs, err := a.session.Documents.List(ctx, filter)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(docs)
			}
			rows := make([][]string, 0, len(docs))
			for _, d := range docs {
				rows = append(rows, []string{
					d.DocID, d.OriginalFilename, string(d.Visibility),
					strconv.Itoa(d.ChunkCount), d.UploaderUsername,
				})
			}
			return writeTable(a.out, []string{"ID", "FILE", "VISIBILITY", "CHUNKS", "UPLOADER"}, rows)
		}),
	}
	cmd.Flags().StringVar(&filter.Visibility, "visibility", "", "public, private or all")
	cmd.Flags().StringVarP(&filter.Search, "search", "q", "", "match filename, id or uploader")
	return cmd
}

func newDocsUploadCommand(flags *globalFlags) *cobra.Command {
	var (
		visibility string
		opts       model.IngestOptions
	)
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more documents",
		Long: `Upload documents for ingestion. One file goes to the single-document
endpoint (and may carry --doc-id); several files are sent as one batch.

Examples:
  kbctl docs upload handbook.pdf
  kbctl docs upload --visibility private a.pdf b.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			vis, ok := model.ParseVisibility(visibility)
			if !ok {
				return fmt.Errorf("--visibility must be public or private")
			}
			opts.Visibility = vis

			uploads := make([]adminapi.Upload, 0, len(args))
			for _, p := range args {
				f, err := os.Open(p) // #nosec G304 - paths are chosen by the operator
				if err != nil {
					return fmt.Errorf("open %s: %w", p, err)
				}
				defer f.Close()
				uploads = append(uploads, adminapi.Upload{Filename: filepath.Base(p), Content: f})
			}

			res, err := a.session.Documents.Upload(ctx, uploads, opts)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res)
			}
			msg := fmt.Sprintf("Uploaded %d document(s).", len(uploads))
			if res.DocID != "" {
				msg = fmt.Sprintf("Uploaded %s (%d chunks).", res.DocID, res.ChunkCount)
			}
			_, err = fmt.Fprintln(a.out, successStyle.Render(msg))
			return err
		}),
	}
	cmd.Flags().StringVar(&visibility, "visibility", string(model.VisibilityPublic), "public or private")
	cmd.Flags().StringVar(&opts.DocID, "doc-id", "", "document id (single file only)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing document with the same id")
	return cmd
}

func newDocsVisibilityCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "visibility <doc-id> <public|private>",
		Short: "Change who can see a document",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if err := a.session.Documents.SetVisibility(ctx, args[0], args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render(args[0]+" is now "+args[1]+"."))
			return err
		}),
	}
}

func newDocsDeleteCommand(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if !yes {
				if !a.interactive() {
					return errors.New("refusing to delete without --yes")
				}
				ok, err := confirm("Delete " + args[0] + "? This cannot be undone.")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := a.session.Documents.Delete(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render("Deleted "+args[0]+"."))
			return err
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newDocsReembedCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reembed <doc-id>",
		Short: "Rebuild a document's vectors",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if err := a.session.Documents.Reembed(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, successStyle.Render("Re-embedding "+args[0]+"."))
			return err
		}),
	}
}
