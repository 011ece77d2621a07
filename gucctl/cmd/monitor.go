package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/guclink/monitoring"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Boot the controller and serve its state over HTTP.",
	Long: "`monitor` boots the controller, serves the monitoring API and " +
		"asks the controller to flush its log periodically until " +
		"interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		open, _ := cmd.Flags().GetBool("open")
		interval, _ := cmd.Flags().GetDuration("flush-interval")

		log := newLogger(cmd)

		s, err := newSession(cfg, log, "")
		if err != nil {
			return err
		}

		if err := s.start(); err != nil {
			return err
		}
		defer s.stop()

		monitor := monitoring.NewMonitor().
			WithLogger(log).
			WithPortNumber(port)
		monitor.RegisterChannel(s.channel)

		url, err := monitor.StartServer()
		if err != nil {
			return err
		}
		defer monitor.StopServer()

		fmt.Fprintln(cmd.OutOrStdout(), "monitoring at", url)

		if open {
			if err := browser.OpenURL(url + "/api/channel/" + cfg.Name); err != nil {
				log.Error(err, "cannot open browser")
			}
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		flushPeriodically(ctx, s, interval)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Int("port", 0, "port of the monitoring API")
	monitorCmd.Flags().Bool("open", false, "open the API in a browser")
	monitorCmd.Flags().Duration("flush-interval", time.Second,
		"how often the controller is asked to flush its log")
}

func flushPeriodically(ctx context.Context, s *session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.channel.ForceLogBufferFlush(); err != nil {
				s.log.Error(err, "log flush request failed")
			}
		}
	}
}
