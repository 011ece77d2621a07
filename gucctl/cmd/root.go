// Package cmd provides the command-line interface of gucctl.
package cmd

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/sarchlab/guclink/config"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gucctl",
	Short: "gucctl boots and exercises a controller command channel.",
	Long: `gucctl builds a command channel against a simulated controller, ` +
		`boots it and sends commands through the register mailbox. Device ` +
		`facts come from a YAML file, .env files and GUCLINK_* variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "",
		"YAML file with the device facts")
	rootCmd.PersistentFlags().StringSlice("env", []string{".env"},
		"env files with GUCLINK_* overrides")
	rootCmd.PersistentFlags().IntP("verbosity", "v", 0,
		"log verbosity, 1 traces every exchange")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newLogger(cmd *cobra.Command) logr.Logger {
	verbosity, _ := cmd.Flags().GetInt("verbosity")
	out := cmd.ErrOrStderr()

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(out, "%s: %s\n", prefix, args)
			return
		}

		fmt.Fprintln(out, args)
	}, funcr.Options{
		Verbosity:    verbosity,
		LogTimestamp: true,
	})
}

func loadConfig(cmd *cobra.Command) (config.DeviceConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env")

	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
