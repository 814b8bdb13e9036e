package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"rallyrent/services/admin"

	"github.com/spf13/cobra"
)

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Manage blocked intervals",
	}
	cmd.AddCommand(newBlocksAddCmd())
	cmd.AddCommand(newBlocksListCmd())
	cmd.AddCommand(newBlocksRemoveCmd())
	return cmd
}

func newBlocksAddCmd() *cobra.Command {
	var (
		in admin.BlockInput
		by string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Block a local time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.adminService().AddBlock(ctx, in, by)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blocked %s\n", res.Block.ID)
			for _, b := range res.Conflicts {
				fmt.Fprintf(out, "warning: overlaps scheduled booking %s on %s at %s\n", b.ID, b.Date, b.StartTime)
			}
			return nil
		},
	}

	c.Flags().StringVar(&in.Date, "date", "", "Start date YYYY-MM-DD (required)")
	c.Flags().StringVar(&in.StartTime, "start", "", "Start time HH:MM (required)")
	c.Flags().StringVar(&in.EndDate, "end-date", "", "End date YYYY-MM-DD (default --date)")
	c.Flags().StringVar(&in.EndTime, "end", "", "End time HH:MM (required)")
	c.Flags().StringVar(&in.Reason, "reason", "", "Why the unit is unavailable")
	c.Flags().StringVar(&by, "by", "cli", "Operator recorded on the block")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}

func newBlocksListCmd() *cobra.Command {
	var from, to string

	c := &cobra.Command{
		Use:   "list",
		Short: "List blocked intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			blocks, err := a.adminService().ListBlocks(ctx, from, to)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTART\tEND\tREASON")
			for _, b := range blocks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID,
					b.Start.In(a.policy.Location).Format("2006-01-02 15:04"),
					b.End.In(a.policy.Location).Format("2006-01-02 15:04"),
					b.Reason)
			}
			return w.Flush()
		},
	}
	c.Flags().StringVar(&from, "from", "", "First local date YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "Last local date YYYY-MM-DD")
	return c
}

func newBlocksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a blocked interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.adminService().RemoveBlock(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
