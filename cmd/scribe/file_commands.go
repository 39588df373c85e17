package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"scribe/internal/session"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var relPath string

	cmd := &cobra.Command{
		Use:   "show [item-id]",
		Short: "Show metadata for a session file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			itemID := ""
			if len(args) > 0 {
				itemID = args[0]
			}
			info, err := svc.sessions.ReadFileInfo(ctx.sessionID(), itemID, relPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Session file", colorize) {
				fmt.Fprintln(out, line)
			}
			if info.ID != "" {
				fmt.Fprintln(out, renderField("Item", info.ID))
			}
			fmt.Fprintln(out, renderField("Session", info.SessionID))
			fmt.Fprintln(out, renderField("Path", info.RelPath))
			if info.Kind != "" {
				fmt.Fprintln(out, renderField("Kind", string(info.Kind)))
			}
			if info.Format != "" {
				fmt.Fprintln(out, renderField("Format", string(info.Format)))
			}
			fmt.Fprintln(out, renderField("Size", formatBytes(info.Size)))
			if info.Pinned != nil {
				fmt.Fprintln(out, renderField("Pinned", yesNo(*info.Pinned)))
			}
			if info.ExpiresAt != nil {
				fmt.Fprintln(out, renderField("Expires", info.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST")))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&relPath, "path", "p", "", "Address by session-relative path instead of item id")
	return cmd
}

func newCatCommand(ctx *commandContext) *cobra.Command {
	var relPath string
	var offset int64
	var maxBytes int

	cmd := &cobra.Command{
		Use:   "cat [item-id]",
		Short: "Print a session file's content",
		Long: `Print a session file to stdout. Without --max-bytes the whole file is
streamed in chunks; with it a single bounded read starting at --offset is
performed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			itemID := ""
			if len(args) > 0 {
				itemID = args[0]
			}
			out := cmd.OutOrStdout()

			if maxBytes > 0 {
				chunk, err := svc.sessions.ReadFileChunk(ctx.sessionID(), itemID, relPath, offset, maxBytes)
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, chunk.Data)
				return err
			}

			for cursor := offset; ; {
				chunk, err := svc.sessions.ReadFileChunk(ctx.sessionID(), itemID, relPath, cursor, session.MaxChunkBytes)
				if err != nil {
					return err
				}
				if _, err := io.WriteString(out, chunk.Data); err != nil {
					return err
				}
				if chunk.EOF {
					return nil
				}
				cursor = chunk.NextOffset
			}
		},
	}

	cmd.Flags().StringVarP(&relPath, "path", "p", "", "Address by session-relative path instead of item id")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Byte offset to start reading from")
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "Read at most this many bytes (0 streams the whole file)")
	return cmd
}

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var content string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "write <relpath>",
		Short: "Write a text file into the session",
		Long: `Store a text file under the session's derived area and register it as a
session item. Content comes from --content or, when omitted, from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			text := content
			if !cmd.Flags().Changed("content") {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			item, err := svc.sessions.WriteTextFile(ctx.sessionID(), args[0], text, overwrite)
			if err != nil {
				return err
			}
			printItem(cmd.OutOrStdout(), item)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "File content (reads stdin when omitted)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the file if it already exists")
	return cmd
}
