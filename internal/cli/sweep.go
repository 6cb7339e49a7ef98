package cli

import (
	"github.com/spf13/cobra"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

// NewSweepCmd создаёт команду ручной сверки. Сверку выполняет сервис.
func NewSweepCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	var kindFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Prune requests whose platform message no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			res, err := backendFn().Sweep(cmd.Context(), kind.String(), dryRun)
			if err != nil {
				return err
			}

			out := outputFn()
			if err := printSweep(out, res); err != nil {
				return err
			}

			verb := "Pruned"
			if res.DryRun {
				verb = "Would prune"
			}
			out.Notice("%s %d %s request(s)", verb, res.Pruned, res.Kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Request kind to sweep")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be pruned without deleting")
	cmd.MarkFlagRequired("kind")

	return cmd
}

// sweepRow — одна заявка в отчёте сверки.
type sweepRow struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func printSweep(out *Output, res *SweepResponse) error {
	var rows []sweepRow
	add := func(keys []string, reason string) {
		for _, k := range keys {
			rows = append(rows, sweepRow{Key: k, Reason: reason})
		}
	}
	add(res.Missing, "missing")
	add(res.Expired, "expired")
	add(res.Unknown, "unknown")
	add(res.Busy, "busy")

	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.Key, r.Reason}
	}

	return out.Print([]string{"KEY", "REASON"}, table, res)
}
