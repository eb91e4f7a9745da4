package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/supergoodsystems/wiretap/pkg/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		f        store.Filter
		asJSON   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded exchanges, oldest first",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if clearAll {
				return a.store.Clear(ctx)
			}

			recs, err := a.store.ListRecords(ctx, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tMETHOD\tSTATUS\tDURATION\tURL\tCHECKED")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dms\t%s%s\t%t\n",
					r.ID, r.RequestTime.Format(time.RFC3339), r.Method, r.StatusCode,
					r.DurationMs, r.BaseURL, r.Path, r.Checked)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&f.Limit, "limit", 0, "show only the newest N records")
	cmd.Flags().StringVar(&f.Method, "method", "", "only records with this method")
	cmd.Flags().StringVar(&f.ClientLibrary, "client", "", "only records from this client library")
	cmd.Flags().BoolVar(&f.UncheckedOnly, "unchecked", false, "only records not yet reviewed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every record")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "check ID...",
		Short: "Mark records as reviewed",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := a.store.SetChecked(cmd.Context(), id, !unset); err != nil {
					return fmt.Errorf("check %s: %w", id, err)
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "mark as not reviewed")
	return cmd
}
