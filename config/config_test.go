package config_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/guclink/config"
	"github.com/sarchlab/guclink/ggtt"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

		return path
	}

	It("should provide valid defaults", func() {
		cfg, err := config.Load("")

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should read the YAML file", func() {
		path := write("device.yaml", `
name: guc1
gen: 11
log_level: 3
submission: true
preemption: true
wopcm_size: 0x200000
guc_wopcm_base: 0x100000
memory_budget: 0x40000
recorder:
  backend: sqlite
  path: run.sqlite3
`)

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Name).To(Equal("guc1"))
		Expect(cfg.Gen).To(Equal(11))
		Expect(cfg.LogLevel).To(Equal(3))
		Expect(cfg.Preemption).To(BeTrue())
		Expect(cfg.WOPCMSize).To(Equal(uint32(0x200000)))
		Expect(cfg.GuCWOPCMBase).To(Equal(uint32(0x100000)))
		Expect(cfg.MemoryBudget).To(Equal(uint64(0x40000)))
		Expect(cfg.Recorder.Backend).To(Equal(config.RecorderSQLite))
		Expect(cfg.Recorder.Path).To(Equal("run.sqlite3"))

		// Fields not in the file keep their default.
		Expect(cfg.HasRC6).To(BeTrue())
		Expect(cfg.GTType).To(Equal(uint32(2)))
	})

	It("should let .env files override the YAML file", func() {
		path := write("device.yaml", "gen: 11\n")
		env := write(".env",
			"GUCLINK_GEN=12\nGUCLINK_RECORDER_BACKEND=clickhouse\n"+
				"GUCLINK_RECORDER_ADDR=localhost:9000\n")

		cfg, err := config.Load(path, env, filepath.Join(dir, "missing.env"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Gen).To(Equal(12))
		Expect(cfg.Recorder.Backend).To(Equal(config.RecorderClickHouse))
		Expect(cfg.Recorder.Addr).To(Equal("localhost:9000"))
	})

	It("should let the environment override .env files", func() {
		env := write(".env", "GUCLINK_LOG_LEVEL=1\n")
		Expect(os.Setenv("GUCLINK_LOG_LEVEL", "4")).To(Succeed())
		DeferCleanup(os.Unsetenv, "GUCLINK_LOG_LEVEL")

		cfg, err := config.Load("", env)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogLevel).To(Equal(4))
	})

	It("should fail on an unreadable YAML file", func() {
		_, err := config.Load(filepath.Join(dir, "none.yaml"))

		Expect(err).To(HaveOccurred())
	})

	It("should fail on malformed YAML", func() {
		path := write("device.yaml", "gen: [\n")

		_, err := config.Load(path)

		Expect(err).To(HaveOccurred())
	})

	It("should reject malformed environment values", func() {
		cfg := config.Default()
		env := map[string]string{"GUCLINK_HAS_RC6": "maybe"}

		err := config.ApplyEnv(&cfg, env)

		Expect(err).To(MatchError(ContainSubstring("HasRC6")))
	})

	It("should parse hexadecimal environment values", func() {
		cfg := config.Default()
		env := map[string]string{
			"GUCLINK_WOPCM_SIZE":             "0x180000",
			"GUCLINK_WA_COARSE_POWER_GATING": "true",
		}

		Expect(config.ApplyEnv(&cfg, env)).To(Succeed())

		Expect(cfg.WOPCMSize).To(Equal(uint32(0x180000)))
		Expect(cfg.WaCoarsePG).To(BeTrue())
	})

	It("should leave fields without a variable untouched", func() {
		cfg := config.Default()
		env := map[string]string{
			"GUCLINK_GGTT_SIZE":         "0x200000000",
			"GUCLINK_RECORDER_DATABASE": "guc",
			"WOPCM_SIZE":                "0x1000",
		}

		Expect(config.ApplyEnv(&cfg, env)).To(Succeed())

		Expect(cfg.GGTTSize).To(Equal(uint64(0x200000000)))
		Expect(cfg.Recorder.Database).To(Equal("guc"))
		Expect(cfg.Recorder.Backend).To(Equal(config.RecorderNone))
		Expect(cfg.WOPCMSize).To(Equal(uint32(0x100000)))
		Expect(cfg.Name).To(Equal("guc0"))
	})

	It("should reject values wider than the field", func() {
		cfg := config.Default()
		env := map[string]string{"GUCLINK_WOPCM_SIZE": "0x100000000"}

		Expect(config.ApplyEnv(&cfg, env)).To(MatchError(ContainSubstring("WOPCMSize")))
	})

	DescribeTable("should reject impossible facts",
		func(mutate func(*config.DeviceConfig)) {
			cfg := config.Default()
			mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *ggtt.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		},
		Entry("empty name", func(c *config.DeviceConfig) { c.Name = "" }),
		Entry("old gen", func(c *config.DeviceConfig) { c.Gen = 8 }),
		Entry("log level", func(c *config.DeviceConfig) { c.LogLevel = 5 }),
		Entry("preemption alone", func(c *config.DeviceConfig) { c.Preemption = true }),
		Entry("WOPCM below base", func(c *config.DeviceConfig) {
			c.WOPCMSize = 0x40000
		}),
		Entry("tiny GGTT", func(c *config.DeviceConfig) { c.GGTTSize = 0x1000 }),
		Entry("unknown recorder", func(c *config.DeviceConfig) {
			c.Recorder.Backend = "csv"
		}),
		Entry("clickhouse without address", func(c *config.DeviceConfig) {
			c.Recorder.Backend = config.RecorderClickHouse
		}),
	)

	It("should convert to device facts", func() {
		cfg := config.Default()
		cfg.Submission = true
		cfg.WaCoarsePG = true

		dev := cfg.DeviceInfo()

		Expect(dev.Gen).To(Equal(9))
		Expect(dev.Submission).To(BeTrue())
		Expect(dev.WaRsDisableCoarsePowerGating).To(BeTrue())
		Expect(dev.WOPCMSize).To(Equal(cfg.WOPCMSize))
		Expect(dev.GGTTSize).To(Equal(cfg.GGTTSize))
	})

	It("should cap the object store at the memory budget", func() {
		cfg := config.Default()
		cfg.MemoryBudget = ggtt.PageSize

		store := cfg.ObjectStore()

		_, err := store.Create(ggtt.PageSize)
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Create(ggtt.PageSize)
		Expect(err).To(MatchError(ggtt.ErrNoMemory))
	})
})
