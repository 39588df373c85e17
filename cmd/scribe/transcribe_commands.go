package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scribe/internal/manifest"
	"scribe/internal/transcribe"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var toFile bool
	var auto bool
	var formatFlag string
	var maxTextBytes int

	cmd := &cobra.Command{
		Use:   "transcribe <url>",
		Short: "Fetch a video transcript",
		Long: `Fetch the auto-generated subtitles for a YouTube video and print the
normalized transcript. With --file the transcript is stored as a session
item instead; --auto picks between the two based on transcript size.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			format, err := parseFormatFlag(formatFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case auto:
				var result transcribe.AutoResult
				if maxTextBytes > 0 {
					result, err = svc.transcriber.AutoWithLimit(cmd.Context(), args[0], ctx.sessionID(), format, maxTextBytes)
				} else {
					result, err = svc.transcriber.Auto(cmd.Context(), args[0], ctx.sessionID(), format)
				}
				if err != nil {
					return err
				}
				if result.Kind == "text" {
					fmt.Fprint(out, result.Text)
					return nil
				}
				fmt.Fprintf(out, "Transcript too large for inline delivery (%d bytes); stored as session item\n", result.Bytes)
				printItem(out, *result.Item)
				return nil
			case toFile:
				item, err := svc.transcriber.ToFile(cmd.Context(), args[0], ctx.sessionID(), format)
				if err != nil {
					return err
				}
				printItem(out, item)
				return nil
			default:
				text, err := svc.transcriber.Text(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&toFile, "file", false, "Store the transcript as a session item instead of printing it")
	cmd.Flags().BoolVar(&auto, "auto", false, "Print small transcripts, store large ones")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "txt", "Transcript format: txt, vtt, or jsonl")
	cmd.Flags().IntVar(&maxTextBytes, "max-text-bytes", 0, "Inline size threshold for --auto (0 uses the configured value)")

	return cmd
}

func newDurationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <url>",
		Short: "Show a video's duration without downloading subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			meta, err := svc.transcriber.Duration(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if meta.Title != "" {
				fmt.Fprintf(out, "Title:    %s\n", meta.Title)
			}
			fmt.Fprintf(out, "Duration: %s (%.0f seconds)\n", meta.DurationString, meta.Duration)
			if meta.IsLive {
				fmt.Fprintln(out, "Live:     yes")
			}
			return nil
		},
	}
}

func parseFormatFlag(value string) (manifest.Format, error) {
	format, ok := manifest.ParseFormat(value)
	if !ok {
		return "", fmt.Errorf("unknown format %q (expected txt, vtt, or jsonl)", value)
	}
	return format, nil
}

func printItem(out io.Writer, item manifest.Item) {
	fmt.Fprintf(out, "Item:    %s\n", item.ID)
	fmt.Fprintf(out, "Kind:    %s\n", item.Kind)
	fmt.Fprintf(out, "Format:  %s\n", item.Format)
	fmt.Fprintf(out, "Path:    %s\n", item.RelPath)
	fmt.Fprintf(out, "Size:    %s\n", formatBytes(item.Size))
	fmt.Fprintf(out, "Pinned:  %s\n", yesNo(item.Pinned))
	if item.ExpiresAt != nil {
		fmt.Fprintf(out, "Expires: %s\n", item.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
}
