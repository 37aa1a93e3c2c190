package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cutlens/cutlens/internal/api"
	"github.com/cutlens/cutlens/internal/config"
	"github.com/cutlens/cutlens/internal/cutdiff"
	"github.com/cutlens/cutlens/internal/edl"
	"github.com/cutlens/cutlens/internal/export"
	"github.com/cutlens/cutlens/internal/logging"
	"github.com/cutlens/cutlens/internal/report"
	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
	"github.com/cutlens/cutlens/internal/watcher"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type app struct {
	cfg      *config.Settings
	settings *cutdiff.Settings
	logger   *slog.Logger
	store    *store.SQLiteStore
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cutlens",
		Short:         "Track and compare editorial cuts at shot granularity",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML settings file")

	root.AddCommand(
		newServeCmd(&configPath),
		newImportCmd(&configPath),
		newCompareCmd(&configPath),
		newCutsCmd(&configPath),
		newExportCmd(&configPath),
	)
	return root
}

// openApp loads settings, sets up logging and opens the database.
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	settings, err := cutdiff.SettingsFrom(cfg)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.OpenSQLite(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, settings: settings, logger: logger, store: st}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("close database", "error", err)
	}
}

func (a *app) readEDL(path string, rate float64) (*timeline.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return edl.Read(f, rate)
}

// importDrop builds the watch-folder handler: each settled EDL file is
// imported as a new cut revision for the default entity.
func (a *app) importDrop(ctx context.Context) watcher.Handler {
	writer := cutdiff.NewWriter(a.store, a.settings, a.logger)
	return func(path string) {
		track, err := a.readEDL(path, a.cfg.WatchRate)
		if err != nil {
			a.logger.Error("read dropped EDL", "path", path, "error", err)
			return
		}
		cut, err := writer.WriteCut(ctx, track, "Project", 1, fmt.Sprintf("imported from %s", filepath.Base(path)))
		if err != nil {
			a.logger.Error("import dropped EDL", "path", path, "error", err)
			return
		}
		a.logger.Info("imported dropped EDL",
			"path", path, "cut_id", cut.ID, "code", cut.Code, "revision", cut.Revision)
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()
			a.logger.Info("starting cutlens", "version", Version, "data_dir", a.cfg.DataDir)

			server := api.NewServer(api.ServerConfig{
				Port:      a.cfg.Port,
				Store:     a.store,
				Settings:  a.settings,
				Logger:    logging.WithComponent(a.logger, "api"),
				StartTime: time.Now(),
				Version:   Version,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if a.cfg.WatchDir != "" {
				w := watcher.New(a.cfg.WatchDir, 0, a.importDrop(ctx),
					logging.WithComponent(a.logger, "watcher"))
				go func() {
					if err := w.Run(ctx); err != nil {
						a.logger.Error("watcher stopped", "error", err)
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				a.logger.Info("received shutdown signal", "signal", sig.String())
			}

			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newImportCmd(configPath *string) *cobra.Command {
	var (
		rate        float64
		entityType  string
		entityID    int64
		description string
	)
	cmd := &cobra.Command{
		Use:   "import <edl-file>",
		Short: "Store an EDL as a new cut revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			track, err := a.readEDL(args[0], rate)
			if err != nil {
				return err
			}
			writer := cutdiff.NewWriter(a.store, a.settings, a.logger)
			cut, err := writer.WriteCut(cmd.Context(), track, entityType, entityID, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as cut %d, revision %d\n",
				cut.Code, cut.ID, cut.Revision)
			return nil
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 24, "EDL frame rate")
	cmd.Flags().StringVar(&entityType, "entity-type", "Project", "entity the cut belongs to")
	cmd.Flags().Int64Var(&entityID, "entity-id", 1, "entity id the cut belongs to")
	cmd.Flags().StringVar(&description, "description", "", "cut description")
	return cmd
}

func newCompareCmd(configPath *string) *cobra.Command {
	var (
		rate       float64
		oldCutID   int64
		entityType string
		entityID   int64
		asCSV      bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "compare <edl-file>",
		Short: "Diff an EDL against a stored cut",
		Long: `Diff an EDL against a stored cut.

The old cut is picked with --old-cut, or defaults to the latest
revision stored for the entity. Without any stored cut every shot
comes out new.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			track, err := a.readEDL(args[0], rate)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if oldCutID == 0 {
				prev, err := a.store.LatestCutForEntity(ctx, entityType, entityID)
				if err == nil {
					oldCutID = prev.ID
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			td, err := cutdiff.Compare(ctx, a.store, track, oldCutID, a.settings, a.logger)
			if err != nil {
				return err
			}
			rep := report.Build(td, track.Name)
			out := cmd.OutOrStdout()
			switch {
			case asCSV:
				return rep.WriteCSV(out)
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			default:
				return rep.WriteText(out)
			}
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 24, "EDL frame rate")
	cmd.Flags().Int64Var(&oldCutID, "old-cut", 0, "cut id to compare against")
	cmd.Flags().StringVar(&entityType, "entity-type", "Project", "entity to pick the latest cut from")
	cmd.Flags().Int64Var(&entityID, "entity-id", 1, "entity id to pick the latest cut from")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write the report as CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <cut-id>",
		Short: "Render a stored cut back out as a CMX 3600 EDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cut id %q", args[0])
			}
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			cut, err := a.store.GetCut(ctx, id)
			if err != nil {
				return err
			}
			items, err := a.store.GetCutItems(ctx, id)
			if err != nil {
				return err
			}
			text, err := export.EDL(cut, items)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			return os.WriteFile(output, []byte(text), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the EDL to a file instead of stdout")
	return cmd
}

func newCutsCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "cuts",
		Short: "List stored cuts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			cuts, err := a.store.ListCuts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cuts) == 0 {
				fmt.Fprintln(out, "No cuts stored.")
				return nil
			}
			for _, cut := range cuts {
				fmt.Fprintf(out, "%4d  %-30s  rev %d  %.6g fps  %s\n",
					cut.ID, cut.Code, cut.Revision, cut.Fps,
					cut.CreatedAt.Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of cuts to list")
	return cmd
}
