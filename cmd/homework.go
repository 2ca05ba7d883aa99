// File: cmd/homework.go
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/dates"
	"github.com/webtopkit/webtop-cli/internal/observability"
	"github.com/webtopkit/webtop-cli/internal/scrape"
)

// newHomeworkCmd creates and configures the `homework` command.
func newHomeworkCmd() *cobra.Command {
	var (
		dateStr  string
		output   string
		headless bool
	)

	homeworkCmd := &cobra.Command{
		Use:   "homework",
		Short: "Logs into the portal and retrieves homework for a date",
		Long: `Logs into the school portal through the ministry identity provider,
navigates to the lesson-topics view, paginates to the requested date and
prints the extracted records as JSON.

Credentials are read from WEBTOP_PORTAL_USERNAME and WEBTOP_PORTAL_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Flags override the loaded config.
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if dateStr == "" {
				dateStr = dates.Display(time.Now())
			}

			// Fail on bad input before any browser work.
			if _, err := dates.Parse(dateStr); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			manager := browser.NewManager(cfg, logger)
			defer func() {
				if err := manager.Shutdown(ctx); err != nil {
					logger.Warn("Browser shutdown incomplete", zap.Error(err))
				}
			}()

			scraper := scrape.New(cfg, logger)
			result, err := scraper.Homework(ctx, manager, dateStr)
			if err != nil {
				switch {
				case errors.Is(err, scrape.ErrMissingCredentials):
					return fmt.Errorf("set WEBTOP_PORTAL_USERNAME and WEBTOP_PORTAL_PASSWORD: %w", err)
				default:
					return err
				}
			}

			return writeResult(result, output)
		},
	}

	homeworkCmd.Flags().StringVarP(&dateStr, "date", "d", "", "target date (dd/mm/yyyy, default today)")
	homeworkCmd.Flags().StringVarP(&output, "output", "o", "-", "output file path, '-' for stdout")
	homeworkCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	return homeworkCmd
}

// writeResult renders the result as indented JSON to stdout or a file.
func writeResult(result *scrape.Result, output string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if output == "" || output == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	observability.GetLogger().Info("Result written", zap.String("path", output))
	return nil
}
