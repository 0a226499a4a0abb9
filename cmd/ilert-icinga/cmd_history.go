package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent delivery attempts from the journal, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return ErrJournalOff
			}
			recs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tOUTCOME\tSTATUS\tFILE\tTOOK\tERROR")
			for _, r := range recs {
				status := "-"
				if r.Status != 0 {
					status = fmt.Sprintf("%d", r.Status)
				}
				errStr := r.Error
				if errStr == "" {
					errStr = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.At.Local().Format("2006-01-02 15:04:05"), r.EventID, r.Outcome, status,
					r.Disposition, (time.Duration(r.TookMS) * time.Millisecond).String(), errStr)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of records to show (0 for all)")
	return cmd
}
