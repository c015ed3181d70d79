package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syncd/internal/config"
	"syncd/internal/control"
	"syncd/internal/daemon"
	"syncd/internal/db"
	"syncd/internal/eventlog"
	"syncd/internal/logger"
	"syncd/internal/pool"
	"syncd/internal/repository"
	"syncd/internal/server"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	manageLogFile    string
	manageConfigFile string
)

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Run the synchronization manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		events, err := eventlog.Open(manageLogFile, cfg.LogMaxSizeMB)
		if err != nil {
			return err
		}
		defer func(events *eventlog.Log) {
			_ = events.Close()
		}(events)

		pairs, err := config.ReadPairs(manageConfigFile)
		if err != nil {
			logger.Log.Error("failed to read config file", zap.Error(err))
			events.Print(err.Error())
			return err
		}

		channel, err := control.OpenFIFOs(cfg.ControlIn, cfg.ControlOut)
		if err != nil {
			return err
		}
		defer func(channel *control.Channel) {
			_ = channel.Close()
		}(channel)

		command, err := workerCommand(cfg.WorkerPath)
		if err != nil {
			return err
		}

		p, err := pool.New(pool.Options{
			Limit:       cfg.WorkerLimit,
			Command:     command,
			Ignore:      cfg.IgnoreList,
			BatchWindow: cfg.BatchWindow,
		})
		if err != nil {
			return err
		}
		p.AttachControl(channel.In)

		opts := daemon.Options{QueueLimit: cfg.QueueLimit}
		if cfg.DBPath != "" {
			if err := db.Init(cfg.DBPath); err != nil {
				_ = p.Close()
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			repo := repository.NewHistoryRepository()
			opts.History = repo

			if cfg.HTTPAddr != "" {
				srv := server.New(repo, cfg.HTTPAddr)
				srv.Start()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Stop(ctx)
				}()
			}
		}

		m := daemon.New(p, events, channel.Out, opts)
		if err := m.Bootstrap(pairs); err != nil {
			return err
		}

		logger.Log.Info("manager started",
			zap.Int("workers", p.Limit()),
			zap.Int("directories", len(pairs)),
			zap.String("in", cfg.ControlIn),
			zap.String("out", cfg.ControlOut))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return m.Run(ctx)
	},
}

// workerCommand returns the worker program and its leading arguments.
// Without an explicit path this executable's worker command is used.
func workerCommand(path string) ([]string, error) {
	if path != "" {
		return []string{path}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate worker executable: %w", err)
	}

	return []string{self, "worker"}, nil
}

func init() {
	manageCmd.Flags().StringVarP(&manageLogFile, "log", "l", "", "event log file")
	manageCmd.Flags().StringVarP(&manageConfigFile, "config", "c", "", "directory pair file")
	manageCmd.Flags().IntP("workers", "n", config.Default.WorkerLimit, "maximum concurrent workers")
	_ = manageCmd.MarkFlagRequired("log")
	_ = manageCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(manageCmd)
}
