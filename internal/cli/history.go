package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/pkg/persistence"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	opts := &journalOptions{}
	var limit int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show recorded runs, or the objects of one run",
		Example: `  otterconf history --journal /var/lib/otterconf/journal.db -n 5
  otterconf history 6f1c2d0e-4b6a-4f43-9d55-0b3f4a1e8c27 --journal /var/lib/otterconf/journal.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jcfg := opts.config()
			if jcfg.Type == "none" {
				return exitError(ExitUsage, errors.New("history needs a journal, set --journal"))
			}
			journal, err := openJournal(jcfg)
			if err != nil {
				return exitError(ExitUsage, err)
			}
			defer journal.Close()

			if len(args) == 1 {
				return renderObjects(cmd, journal, args[0])
			}
			return renderRuns(cmd, journal, limit)
		},
	}
	opts.bind(cmd, cfg)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show, 0 for all")
	return cmd
}

func renderRuns(cmd *cobra.Command, journal persistence.Journal, limit int) error {
	runs, err := journal.Runs(limit)
	if err != nil {
		return exitError(ExitFailed, fmt.Errorf("reading journal: %w", err))
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	rows := [][]string{{"RUN", "MODE", "SOURCE", "BROKER", "STARTED", "DURATION", "ERRORS"}}
	for _, r := range runs {
		duration := "running"
		if r.Finished() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.ID,
			r.Mode,
			r.Source,
			r.Broker,
			r.StartedAt.Local().Format(time.RFC3339),
			duration,
			strconv.Itoa(r.Errors),
		})
	}
	return renderTable(cmd, rows)
}

func renderObjects(cmd *cobra.Command, journal persistence.Journal, runID string) error {
	entries, err := journal.Objects(runID)
	if errors.Is(err, persistence.ErrRunNotFound) {
		return exitError(ExitUsage, fmt.Errorf("run %s not found", runID))
	}
	if err != nil {
		return exitError(ExitFailed, fmt.Errorf("reading journal: %w", err))
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s recorded no objects\n", runID)
		return nil
	}

	rows := [][]string{{"KIND", "KEY", "OUTCOME", "DETAIL"}}
	for _, e := range entries {
		rows = append(rows, []string{e.Kind, e.Key, e.Outcome, e.Detail})
	}
	return renderTable(cmd, rows)
}

func renderTable(cmd *cobra.Command, rows [][]string) error {
	out, err := pterm.DefaultTable.WithHasHeader(true).WithData(rows).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
