package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sarchlab/guclink/guc"
	"github.com/spf13/cobra"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot the controller and run the command set once.",
	Long: "`boot` loads the device facts, boots a simulated controller, " +
		"sends every host command once and prints the channel counters.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logDir, _ := cmd.Flags().GetString("log-dir")

		s, err := newSession(cfg, newLogger(cmd), logDir)
		if err != nil {
			return err
		}

		if err := s.start(); err != nil {
			return err
		}
		defer s.stop()

		results := runCommandSet(s.channel)
		printResults(cmd.OutOrStdout(), results)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(s.channel.Stats())
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)
	bootCmd.Flags().String("log-dir", "",
		"directory that receives the captured controller logs")
}

type commandResult struct {
	Name    string
	Outcome guc.Outcome
	Err     error
}

// runCommandSet sends every host command once, in the order a driver load
// and a suspend cycle would.
func runCommandSet(c *guc.Channel) []commandResult {
	commands := []struct {
		name string
		fn   func() error
	}{
		{"sample-forcewake", c.SampleForcewake},
		{"authenticate-huc", func() error { return c.AuthenticateHuC(0) }},
		{"log-verbosity", func() error {
			return c.SetLogVerbosity(c.Device().LogLevel-1, true)
		}},
		{"force-log-flush", c.ForceLogBufferFlush},
		{"suspend", c.Suspend},
		{"resume", c.Resume},
	}

	results := make([]commandResult, 0, len(commands))
	for _, cmd := range commands {
		err := cmd.fn()
		results = append(results, commandResult{
			Name:    cmd.name,
			Outcome: guc.Classify(err),
			Err:     err,
		})
	}

	return results
}

func printResults(w io.Writer, results []commandResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%-18s %-16s %v\n", r.Name, r.Outcome, r.Err)
			continue
		}

		fmt.Fprintf(w, "%-18s %s\n", r.Name, r.Outcome)
	}
}
