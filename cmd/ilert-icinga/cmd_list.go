package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ilertrelay/internal/event"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved events waiting to be sent, oldest first",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			entries, err := s.Pending()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tAPI KEY\tENTRIES")
			for _, e := range entries {
				key, count := "-", "invalid"
				if data, err := s.Read(e); err == nil {
					if k, p, err := event.Decode(data); err == nil {
						key, count = maskKey(k), strconv.Itoa(p.Len())
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID(), e.ModTime.Format("2006-01-02 15:04:05"), key, count)
			}
			return w.Flush()
		},
	}
}

// maskKey keeps only the last four characters of an API key.
func maskKey(k string) string {
	r := []rune(k)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}
