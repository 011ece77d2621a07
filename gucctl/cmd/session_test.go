package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/guclink/config"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/monitoring"
)

var _ = Describe("Session", func() {
	var (
		dir string
		cfg config.DeviceConfig
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfg = config.Default()
	})

	It("should boot and run the command set", func() {
		s, err := newSession(cfg, GinkgoLogr, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.start()).To(Succeed())
		defer s.stop()

		results := runCommandSet(s.channel)

		Expect(results).To(HaveLen(6))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred(), r.Name)
			Expect(r.Outcome).To(Equal(guc.OutcomeSuccess))
		}

		Expect(s.fw.Params()[guc.CtlLogParams]).NotTo(BeZero())
	})

	It("should report failed commands", func() {
		s, err := newSession(cfg, GinkgoLogr, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.start()).To(Succeed())
		defer s.stop()

		s.fw.Mute(guc.ActionEnterSState, true)

		results := runCommandSet(s.channel)

		buf := new(bytes.Buffer)
		printResults(buf, results)

		Expect(results[4].Outcome).To(Equal(guc.OutcomeTimeout))
		Expect(buf.String()).To(ContainSubstring("suspend"))
		Expect(buf.String()).To(ContainSubstring("timeout"))
	})

	It("should fail to start on a tight memory budget", func() {
		cfg.MemoryBudget = 1

		s, err := newSession(cfg, GinkgoLogr, "")
		Expect(err).NotTo(HaveOccurred())

		Expect(s.start()).NotTo(Succeed())
		Expect(s.channel.Regions()).To(BeEmpty())
	})

	It("should store captured logs in the log directory", func() {
		logDir := filepath.Join(dir, "logs")

		s, err := newSession(cfg, GinkgoLogr, logDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.start()).To(Succeed())

		Expect(s.channel.ForceLogBufferFlush()).To(Succeed())
		s.stop()

		files, err := os.ReadDir(logDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Name()).To(Equal("guc0_log_000001.bin"))
	})

	It("should record into SQLite", func() {
		cfg.Recorder.Backend = config.RecorderSQLite
		cfg.Recorder.Path = filepath.Join(dir, "run")

		s, err := newSession(cfg, GinkgoLogr, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.start()).To(Succeed())

		runCommandSet(s.channel)
		s.stop()

		Expect(filepath.Join(dir, "run.sqlite3")).To(BeAnExistingFile())
	})

	It("should spread a stress run over the senders", func() {
		s, err := newSession(cfg, GinkgoLogr, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.start()).To(Succeed())
		defer s.stop()

		monitor := monitoring.NewMonitor()

		failed := stress(s, monitor, 64, 4)

		Expect(failed).To(BeZero())
		Expect(s.channel.Stats().Exchanges).
			To(BeNumerically(">=", uint64(60)))
		Expect(s.channel.FlushInterruptCount()).To(Equal(uint64(4)))
	})
})

var _ = Describe("Boot command", func() {
	It("should print the outcomes and the counters", func() {
		out := new(bytes.Buffer)
		rootCmd.SetOut(out)
		rootCmd.SetErr(GinkgoWriter)
		rootCmd.SetArgs([]string{"boot", "--config", "", "--env", ""})

		Expect(rootCmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("authenticate-huc"))

		start := bytes.IndexByte(out.Bytes(), '{')
		Expect(start).To(BeNumerically(">", 0))

		var stats guc.Stats
		Expect(json.Unmarshal(out.Bytes()[start:], &stats)).To(Succeed())
		Expect(stats.Name).To(Equal("guc0"))
		Expect(stats.Exchanges).To(BeNumerically(">=", uint64(6)))
		Expect(stats.Failures).To(BeZero())
	})

	It("should reject an invalid configuration", func() {
		path := filepath.Join(GinkgoT().TempDir(), "device.yaml")
		Expect(os.WriteFile(path, []byte("gen: 8\n"), 0o600)).To(Succeed())

		rootCmd.SetOut(GinkgoWriter)
		rootCmd.SetErr(GinkgoWriter)
		rootCmd.SetArgs([]string{"boot", "--config", path, "--env", ""})

		Expect(rootCmd.Execute()).To(MatchError(ContainSubstring("gen 8")))
	})
})
