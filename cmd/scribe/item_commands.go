package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scribe/internal/manifest"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var formatFlag string
	var pinnedFlag string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List session items",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}

			filter, err := buildFilter(kindFlag, formatFlag, pinnedFlag)
			if err != nil {
				return err
			}

			items, err := svc.sessions.ListItems(ctx.sessionID(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintf(out, "No items in session %q\n", ctx.sessionID())
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				expires := "-"
				if item.ExpiresAt != nil {
					expires = item.ExpiresAt.UTC().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					item.ID,
					string(item.Kind),
					string(item.Format),
					item.RelPath,
					formatBytes(item.Size),
					yesNo(item.Pinned),
					expires,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "KIND", "FORMAT", "PATH", "SIZE", "PINNED", "EXPIRES"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Filter by kind: transcript or derived")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Filter by format")
	cmd.Flags().StringVar(&pinnedFlag, "pinned", "", "Filter by pin state: true or false")

	return cmd
}

func buildFilter(kind, format, pinned string) (manifest.Filter, error) {
	var filter manifest.Filter
	if kind != "" {
		k := manifest.Kind(kind)
		if !k.Valid() {
			return filter, fmt.Errorf("unknown kind %q (expected transcript or derived)", kind)
		}
		filter.Kind = &k
	}
	if format != "" {
		f := manifest.Format(format)
		filter.Format = &f
	}
	if pinned != "" {
		value, err := strconv.ParseBool(pinned)
		if err != nil {
			return filter, fmt.Errorf("invalid --pinned value %q", pinned)
		}
		filter.Pinned = &value
	}
	return filter, nil
}

func newPinCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <item-id>",
		Short: "Pin an item so it never expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			item, err := svc.sessions.Pin(ctx.sessionID(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s (%s)\n", item.ID, item.RelPath)
			return nil
		},
	}
}

func newUnpinCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <item-id>",
		Short: "Unpin an item, restarting its expiry clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			item, err := svc.sessions.Unpin(ctx.sessionID(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unpinned %s (%s)\n", item.ID, item.RelPath)
			if item.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires %s\n", item.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func newTTLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <item-id> <seconds>",
		Short: "Set an item's time to live",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			seconds, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid TTL %q: expected a number of seconds", args[1])
			}
			item, err := svc.sessions.SetTTL(ctx.sessionID(), args[0], seconds)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Updated %s (%s)\n", item.ID, item.RelPath)
			if item.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires %s\n", item.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete an item and its backing file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			if err := svc.sessions.Delete(ctx.sessionID(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
