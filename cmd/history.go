package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jacklau/webshot/internal/notify"
	"github.com/jacklau/webshot/internal/publish"
	"github.com/jacklau/webshot/internal/store"
)

var (
	historyRepo  string
	historyLimit int
)

const defaultHistoryLimit = 20

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent upload runs",
	Long: `Display recent runs recorded in the history database with their commit,
event kind, per-status screenshot counts, and how the report was published.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyRepo, "repo", "", "only show runs for owner/repo")
	historyCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("run history is disabled (set store.path in the config file)")
	}
	if historyRepo != "" {
		if _, _, err := parseRepoArg(historyRepo); err != nil {
			return err
		}
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	stats, err := db.ListRunStats(historyRepo, historyLimit)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(stats) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "Run 'webshot upload' with store.path configured to start recording.")
		return nil
	}

	writeHistory(out, stats, time.Now())

	fmt.Fprintln(out)
	dbSize, err := dbFileSize(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(out, "Database: %s (size unknown)\n", cfg.Store.Path)
	} else {
		fmt.Fprintf(out, "Database: %s (%s)\n", cfg.Store.Path, humanize.Bytes(uint64(dbSize)))
	}
	return nil
}

// writeHistory prints one row per run, newest first.
func writeHistory(out io.Writer, stats []store.RunStats, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tREPOSITORY\tBRANCH\tCOMMIT\tKIND\tPR\tSCREENSHOTS\tREPORT\tDURATION")
	for _, s := range stats {
		r := s.Run
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			orDash(r.Repository),
			orDash(r.Branch),
			commitRange(r),
			orDash(r.EventKind),
			prRef(r.PRNumber),
			notify.FormatCounts(s.Counts),
			publishedAs(r.PublishAction),
			runDuration(r),
		)
	}
	w.Flush()
}

// commitRange shows "base..head" with abbreviated hashes.
func commitRange(r store.Run) string {
	switch {
	case r.CommitSHA == "":
		return "-"
	case r.CompareCommitSHA == "":
		return notify.ShortSHA(r.CommitSHA)
	default:
		return notify.ShortSHA(r.CompareCommitSHA) + ".." + notify.ShortSHA(r.CommitSHA)
	}
}

// publishedAs names how the report was published, "-" when it was not.
func publishedAs(action string) string {
	if a, ok := publish.ParseAction(action); ok {
		return string(a)
	}
	return "-"
}

// runDuration formats how long a run took, "running" if it never finished.
func runDuration(r store.Run) string {
	if r.FinishedAt == nil {
		return "running"
	}
	return notify.FormatDuration(r.FinishedAt.Sub(r.StartedAt))
}

// dbFileSize returns the size in bytes of the database file.
func dbFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
