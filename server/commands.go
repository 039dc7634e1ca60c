package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"agent-arena/server/arena"
	"agent-arena/server/rating"
	"agent-arena/server/store"
)

func (a *app) tournamentCmd() *cobra.Command {
	var matches int
	cmd := &cobra.Command{
		Use:   "tournament",
		Short: "Play two-agent matches one at a time, round-robin, updating Elo after each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			af, cfg, err := a.arenaConfig()
			if err != nil {
				return err
			}
			if matches <= 0 {
				matches = af.Matches
			}
			mm, err := arena.NewMatchManager(cfg)
			if err != nil {
				return err
			}
			mm.StartElo, mm.K = a.env.EloStart, a.env.EloK
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				mm.Mirror = db
			}
			board, err := mm.LoadLeaderboard(ctx)
			if err != nil {
				return err
			}
			a.serveStatus(ctx, board)

			if err := mm.Run(ctx, matches); err != nil {
				return err
			}
			printStandings(mm.Leaderboard().Rows())
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.arena, "config", "c", "", "arena YAML file")
	cmd.Flags().IntVarP(&matches, "matches", "n", 0, "matches to play (default: arena file)")
	return cmd
}

func (a *app) poolCmd() *cobra.Command {
	var matches, workers int
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Play many matches concurrently, balancing how often each seating is played",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			af, cfg, err := a.arenaConfig()
			if err != nil {
				return err
			}
			if matches <= 0 {
				matches = af.Matches
			}
			if workers <= 0 {
				workers = af.MaxConcurrent
			}
			pool, err := arena.NewPoolManager(cfg, workers)
			if err != nil {
				return err
			}
			a.serveStatus(cmd.Context(), pool)

			wdl, err := pool.Run(cmd.Context(), matches)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tW\tD\tL")
			for _, ag := range cfg.Agents {
				r := wdl[ag.Name]
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", ag.Name, r.Wins, r.Draws, r.Losses)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&a.arena, "config", "c", "", "arena YAML file")
	cmd.Flags().IntVarP(&matches, "matches", "n", 0, "matches to play (default: arena file)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "matches in flight (default: MAX_CONCURRENT_MATCHES)")
	return cmd
}

func (a *app) rateCmd() *cobra.Command {
	var samples, period int
	var seed int64
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Fit Bradley-Terry and Glicko-2 over every recorded match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := arena.LoadReports(a.env.OutputDir)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				return fmt.Errorf("no matches under %s", a.env.OutputDir)
			}
			opts := rating.DefaultBTOptions()
			opts.Anchor = a.env.EloStart
			rows := arena.RatingReport(reports, arena.ReportOptions{BT: opts, Samples: samples, Seed: seed, PeriodSize: period})

			b, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			out := filepath.Join(a.env.OutputDir, "ratings.json")
			if err := os.WriteFile(out, append(b, '\n'), 0o644); err != nil {
				return err
			}
			a.log.Info().Int("matches", len(reports)).Str("file", out).Msg("ratings written")

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tBT\t95% CI\tGLICKO\tRD\tW-D-L\tWIN RATE CI")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%.0f\t[%.0f, %.0f]\t%.0f\t%.0f\t%d-%d-%d\t[%.2f, %.2f]\n",
					r.Agent, r.BT, r.BTCI.Low, r.BTCI.High, r.Glicko, r.GlickoRD,
					r.Wins, r.Draws, r.Losses, r.WinRateCI.Low, r.WinRateCI.High)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 200, "bootstrap resamples")
	cmd.Flags().Int64Var(&seed, "seed", 1, "bootstrap seed")
	cmd.Flags().IntVar(&period, "period", 10, "games per Glicko-2 rating period")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables used by the rating mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.env.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			ctx := cmd.Context()
			db, err := store.Open(ctx, a.env.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.Migrate(ctx, db); err != nil {
				return err
			}
			n, err := db.MatchCount(ctx)
			if err != nil {
				return err
			}
			a.log.Info().Int("matches", n).Msg("migration complete")
			return nil
		},
	}
}

func printStandings(rows []arena.Standing) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMODEL\tELO\tW\tD\tL")
	for i, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%d\t%d\t%d\n", i+1, r.Model, r.Elo, r.Wins, r.Draws, r.Losses)
	}
	_ = w.Flush()
}
