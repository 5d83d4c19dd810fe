package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "resonate"
	version = "v1.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Resonance engine: profile building, pair scoring, feed ranking, conversation health",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/resonate.yaml", "Path to YAML config")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild one user's resonance profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			profile, err := app.Builder.Rebuild(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}
	rebuildCmd.Flags().String("user", "", "User id to rebuild")

	rebuildAllCmd := &cobra.Command{
		Use:   "rebuild-all",
		Short: "Run the daily rebuild pass over active users",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Builder.RebuildAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Build one page of a viewer's discovery feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			cursorFlag, _ := cmd.Flags().GetString("cursor")
			var cursor *string
			if cursorFlag != "" {
				cursor = &cursorFlag
			}
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			page, err := app.Feed.Discover(cmd.Context(), userID, cursor, limit)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	feedCmd.Flags().String("user", "", "Viewer user id")
	feedCmd.Flags().Int("limit", 0, "Page size (default from config)")
	feedCmd.Flags().String("cursor", "", "Page cursor from a previous response")

	healthSweepCmd := &cobra.Command{
		Use:   "health-sweep",
		Short: "Analyze all recently active conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Monitor.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the cron scheduler and ops listener until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.RunScheduler(cmd.Context())
		},
	}

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve only the ops endpoints (/metrics, /healthz)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Ops.Run(cmd.Context())
		},
	}

	rootCmd.AddCommand(rebuildCmd, rebuildAllCmd, feedCmd, healthSweepCmd, scheduleCmd, metricsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
