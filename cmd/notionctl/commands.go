package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samvad-hq/notion-blocks/internal/app"
	"github.com/samvad-hq/notion-blocks/pkg/notion"

	"github.com/spf13/cobra"
)

const (
	outputJSON   = "json"
	outputPretty = "pretty"
)

// editorFunc returns the editor shared by all subcommands.
type editorFunc func(ctx context.Context) (*app.Editor, error)

// failureError marks a command whose result was a {code, error} record. The
// record has already been printed.
type failureError struct {
	record *notion.APIError
}

func (e *failureError) Error() string { return e.record.Error() }

type cli struct {
	open   editorFunc
	output string
}

func newRootCmd(open editorFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "notionctl",
		Short:         "Read and edit Notion pages and blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch c.output {
			case outputJSON, outputPretty:
				return nil
			default:
				return fmt.Errorf("invalid --output %q (expected %s or %s)", c.output, outputJSON, outputPretty)
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.output, "output", "o", outputJSON, "output format: json or pretty")

	root.AddCommand(
		c.envelopeCmd("search [title]", "Search pages by title", cobra.MaximumNArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				title := ""
				if len(args) == 1 {
					title = args[0]
				}
				return e.Client().SearchPages(ctx, title)
			}),
		c.envelopeCmd("page <page-id>", "Retrieve a page", cobra.ExactArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.Client().GetPage(ctx, args[0])
			}),
		c.envelopeCmd("block <block-id>", "Retrieve a block", cobra.ExactArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.Client().GetBlock(ctx, args[0])
			}),
		c.envelopeCmd("children <block-id>", "List the children of a page or block", cobra.ExactArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.Client().GetBlockChildren(ctx, args[0])
			}),
		c.envelopeCmd("append-text <parent-id> <text>", "Append a paragraph", cobra.ExactArgs(2),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.AppendText(ctx, args[0], args[1])
			}),
		c.envelopeCmd("set-text <block-id> <text>", "Replace the text of a text block", cobra.ExactArgs(2),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.SetText(ctx, args[0], args[1])
			}),
		c.envelopeCmd("get-text <block-id>", "Print the text of a text block", cobra.ExactArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				env, err := e.Client().GetBlock(ctx, args[0])
				if err != nil || !env.OK() {
					return env, err
				}
				block, _ := env.Block()
				text, ok := notion.TextGet(block)
				if !ok {
					return notion.Envelope{Failure: notion.NotTextBlock()}, nil
				}
				return notion.Envelope{Value: text}, nil
			}),
		c.envelopeCmd("add-image <parent-id> <url>", "Append an external image", cobra.ExactArgs(2),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.AddImage(ctx, args[0], args[1])
			}),
		c.envelopeCmd("replace-image <parent-id> <block-id> <url>", "Delete an image block and append a new one", cobra.ExactArgs(3),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.ReplaceImage(ctx, args[0], args[1], args[2])
			}),
		c.envelopeCmd("append-blocks <parent-id> <file>", "Append blocks read from a YAML or JSON file", cobra.ExactArgs(2),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				blocks, err := app.LoadBlocks(args[1])
				if err != nil {
					return notion.Envelope{}, err
				}
				return e.AppendBlocks(ctx, args[0], blocks)
			}),
		c.envelopeCmd("delete <block-id>", "Archive a block", cobra.ExactArgs(1),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.Delete(ctx, args[0])
			}),
		c.envelopeCmd("clip <parent-id> <url>", "Append a web page's title, description and image", cobra.ExactArgs(2),
			func(ctx context.Context, e *app.Editor, args []string) (notion.Envelope, error) {
				return e.Clip(ctx, args[0], args[1])
			}),
		c.cleanupCmd(),
	)
	return root
}

// envelopeCmd wires a subcommand whose result is printed as an envelope.
func (c *cli) envelopeCmd(use, short string, args cobra.PositionalArgs, fn func(context.Context, *app.Editor, []string) (notion.Envelope, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			editor, err := c.open(ctx)
			if err != nil {
				return err
			}
			env, err := fn(ctx, editor, args)
			if err != nil {
				return err
			}
			if err := c.print(cmd.OutOrStdout(), env); err != nil {
				return err
			}
			if !env.OK() {
				return &failureError{record: env.Failure}
			}
			return nil
		},
	}
}

func (c *cli) cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <parent-id>",
		Short: "Delete every block notionctl created under a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			editor, err := c.open(ctx)
			if err != nil {
				return err
			}
			deleted, cleanupErr := editor.Cleanup(ctx, args[0])
			if err := c.print(cmd.OutOrStdout(), map[string]any{"parent_id": args[0], "deleted": deleted}); err != nil {
				return err
			}
			return cleanupErr
		},
	}
}

func (c *cli) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if strings.EqualFold(c.output, outputPretty) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
