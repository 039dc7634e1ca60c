package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"agent-arena/server/arena"
	"agent-arena/server/config"
	"agent-arena/server/game"
	"agent-arena/server/liarsdice"
	"agent-arena/server/logging"
	"agent-arena/server/monitor"
	"agent-arena/server/player"
	"agent-arena/server/poker"
	"agent-arena/server/rps"
	"agent-arena/server/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	env      config.Env
	log      zerolog.Logger
	registry *game.Registry
	envFile  string
	arena    string
	outDir   string
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "arena",
		Short:         "Play LLM agents against each other in turn-based games and rate them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.env = config.Load(a.envFile)
			if a.outDir != "" {
				a.env.OutputDir = a.outDir
			}
			a.log = logging.New(a.env.LogLevel, a.env.LogJSON)
			r, err := game.NewRegistry(poker.Entry(), liarsdice.Entry(), rps.Entry())
			if err != nil {
				return err
			}
			a.registry = r
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&a.outDir, "out", "", "output directory (overrides ARENA_OUTPUT_DIR)")

	root.AddCommand(a.tournamentCmd(), a.poolCmd(), a.rateCmd(), a.migrateCmd())
	return root
}

// arenaConfig builds the shared manager config from the arena file.
func (a *app) arenaConfig() (*config.Arena, arena.Config, error) {
	if a.arena == "" {
		return nil, arena.Config{}, fmt.Errorf("--config is required")
	}
	af, err := config.LoadArena(a.arena)
	if err != nil {
		return nil, arena.Config{}, err
	}
	af.Apply(a.env)
	cfg := arena.Config{
		Registry:          a.registry,
		Game:              af.Game,
		GameConfig:        af.GameConfig,
		Agents:            af.Agents,
		Players:           &player.Factory{LLM: a.env.LLM, Prompts: af.Prompts, Log: a.log},
		OutputDir:         a.env.OutputDir,
		MaxRounds:         af.MaxRounds,
		MaxPlayerAttempts: af.MaxPlayerAttempts,
		Condition:         af.Condition,
		Logger:            a.log.With().Str("game", af.Game).Logger(),
	}
	return af, cfg, nil
}

// serveStatus starts the status server when METRICS_ADDR is set. Its error,
// if any, is logged; it never stops a run.
func (a *app) serveStatus(ctx context.Context, src monitor.Source) {
	if a.env.MetricsAddr == "" {
		return
	}
	go func() {
		if err := monitor.Serve(ctx, a.env.MetricsAddr, monitor.Router(src), a.log); err != nil {
			a.log.Error().Err(err).Msg("status server stopped")
		}
	}()
}

func (a *app) openStore(ctx context.Context) (*store.DB, error) {
	if a.env.DatabaseURL == "" {
		return nil, nil
	}
	db, err := store.Open(ctx, a.env.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
