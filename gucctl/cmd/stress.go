package cmd

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/monitoring"
	"github.com/spf13/cobra"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Send many commands from concurrent senders.",
	Long: "`stress` boots the controller and sends commands from several " +
		"goroutines while the controller raises log flush events. " +
		"Progress is reported by the monitor.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		count, _ := cmd.Flags().GetUint64("count")
		senders, _ := cmd.Flags().GetInt("senders")
		port, _ := cmd.Flags().GetInt("monitor-port")
		serve, _ := cmd.Flags().GetBool("monitor")

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

		if serve {
			url, err := monitor.StartServer()
			if err != nil {
				return err
			}
			defer monitor.StopServer()

			fmt.Fprintln(cmd.OutOrStdout(), "monitoring at", url)
		}

		failed := stress(s, monitor, count, senders)

		fmt.Fprintf(cmd.OutOrStdout(),
			"sent %d commands, %d failed, %d log flushes\n",
			count, failed, s.channel.FlushInterruptCount())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)
	stressCmd.Flags().Uint64("count", 1000, "number of commands to send")
	stressCmd.Flags().Int("senders", 4, "number of concurrent senders")
	stressCmd.Flags().Bool("monitor", false, "serve the monitoring API")
	stressCmd.Flags().Int("monitor-port", 0, "port of the monitoring API")
}

// stress spreads count commands over the senders and returns how many
// failed. Every sixteenth command is replaced by a controller log flush
// event.
func stress(
	s *session,
	monitor *monitoring.Monitor,
	count uint64,
	senders int,
) uint64 {
	if senders < 1 {
		senders = 1
	}

	bar := monitor.CreateProgressBar("stress "+s.channel.Name(), count)
	defer monitor.CompleteProgressBar(bar)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed uint64
	)

	work := make(chan uint64)

	for i := 0; i < senders; i++ {
		wg.Add(1)

		go func(seed int64) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(seed))

			for n := range work {
				bar.IncrementInProgress(1)

				err := sendOne(s, rng, n)

				bar.MoveInProgressToFinished(1, err != nil)

				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}(int64(i))
	}

	for n := uint64(0); n < count; n++ {
		work <- n
	}
	close(work)

	wg.Wait()

	return failed
}

func sendOne(s *session, rng *rand.Rand, n uint64) error {
	if n%16 == 15 {
		s.fw.RaiseEvent(guc.MsgFlushLogBuffer)
		return nil
	}

	switch rng.Intn(3) {
	case 0:
		return s.channel.SampleForcewake()
	case 1:
		return s.channel.AuthenticateHuC(uint32(rng.Intn(1 << 20)))
	default:
		return s.channel.SetLogVerbosity(rng.Intn(4), true)
	}
}
