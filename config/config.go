// Package config loads the hardware facts and the run options of a channel
// from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sarchlab/guclink/ggtt"
	"github.com/sarchlab/guclink/guc"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts the name of every environment variable that overrides a
// file value. GUCLINK_WOPCM_SIZE overrides wopcm_size and
// GUCLINK_RECORDER_BACKEND overrides recorder.backend.
const EnvPrefix = "GUCLINK_"

// Recorder backends.
const (
	RecorderNone       = "none"
	RecorderSQLite     = "sqlite"
	RecorderClickHouse = "clickhouse"
)

// RecorderConfig selects where exchanges and events are stored.
type RecorderConfig struct {
	Backend  string `yaml:"backend" env:"BACKEND"`
	Path     string `yaml:"path" env:"PATH"`
	Addr     string `yaml:"addr" env:"ADDR"`
	Database string `yaml:"database" env:"DATABASE"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// DeviceConfig describes one device and how its channel is run.
type DeviceConfig struct {
	Name         string `yaml:"name" env:"NAME"`
	Gen          int    `yaml:"gen" env:"GEN"`
	GTType       uint32 `yaml:"gt_type" env:"GT_TYPE"`
	LogLevel     int    `yaml:"log_level" env:"LOG_LEVEL"`
	Submission   bool   `yaml:"submission" env:"SUBMISSION"`
	Preemption   bool   `yaml:"preemption" env:"PREEMPTION"`
	HasCT        bool   `yaml:"has_ct" env:"HAS_CT"`
	HasRC6       bool   `yaml:"has_rc6" env:"HAS_RC6"`
	WaCoarsePG   bool   `yaml:"wa_coarse_power_gating" env:"WA_COARSE_POWER_GATING"`
	WOPCMSize    uint32 `yaml:"wopcm_size" env:"WOPCM_SIZE"`
	GuCWOPCMBase uint32 `yaml:"guc_wopcm_base" env:"GUC_WOPCM_BASE"`
	GGTTSize     uint64 `yaml:"ggtt_size" env:"GGTT_SIZE"`

	// MemoryBudget caps the backing memory of shared regions. Zero means
	// unlimited.
	MemoryBudget uint64 `yaml:"memory_budget" env:"MEMORY_BUDGET"`

	Recorder RecorderConfig `yaml:"recorder" envPrefix:"RECORDER_"`
}

// Default returns the facts of a gen9 part with a 1MiB WOPCM.
func Default() DeviceConfig {
	return DeviceConfig{
		Name:         "guc0",
		Gen:          9,
		GTType:       2,
		HasRC6:       true,
		WOPCMSize:    0x100000,
		GuCWOPCMBase: 0x80000,
		GGTTSize:     1 << 32,
		Recorder: RecorderConfig{
			Backend: RecorderNone,
		},
	}
}

// Load builds a DeviceConfig. Values come from, in increasing priority, the
// defaults, the YAML file at path, the given .env files and the process
// environment. An empty path skips the YAML file and missing .env files are
// ignored.
func Load(path string, envFiles ...string) (DeviceConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cannot read config: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	}

	dotEnv, err := readEnvFiles(envFiles)
	if err != nil {
		return cfg, err
	}

	environ := dotEnv
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}

	if err := ApplyEnv(&cfg, environ); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	values := make(map[string]string)

	for _, f := range files {
		read, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("cannot read env file %s: %w", f, err)
		}

		for k, v := range read {
			if _, seen := values[k]; !seen {
				values[k] = v
			}
		}
	}

	return values, nil
}

// ApplyEnv overrides the fields of cfg that have a GUCLINK_* variable in
// environ. Unsigned integers accept a 0x prefix.
func ApplyEnv(cfg *DeviceConfig, environ map[string]string) error {
	err := env.ParseWithOptions(cfg, env.Options{
		Environment: environ,
		Prefix:      EnvPrefix,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(uint32(0)): parseUint(32),
			reflect.TypeOf(uint64(0)): parseUint(64),
		},
	})
	if err != nil {
		return fmt.Errorf("invalid %s* variable: %w", EnvPrefix, err)
	}

	return nil
}

func parseUint(bits int) env.ParserFunc {
	return func(v string) (any, error) {
		n, err := strconv.ParseUint(v, 0, bits)
		if err != nil {
			return nil, err
		}

		if bits == 32 {
			return uint32(n), nil
		}

		return n, nil
	}
}

// Validate rejects facts no controller can be booted with.
func (c DeviceConfig) Validate() error {
	switch {
	case c.Name == "":
		return configErr("device name is empty")
	case c.Gen < 9:
		return configErr("gen %d has no command channel", c.Gen)
	case c.LogLevel < 0 || c.LogLevel > 4:
		return configErr("log level %d is outside [0, 4]", c.LogLevel)
	case c.Preemption && !c.Submission:
		return configErr("preemption requires submission")
	case c.WOPCMSize < c.GuCWOPCMBase:
		return configErr("WOPCM size 0x%x is below the partition base 0x%x",
			c.WOPCMSize, c.GuCWOPCMBase)
	case c.GGTTSize != 0 && c.GGTTSize <= uint64(c.WOPCMSize-c.GuCWOPCMBase):
		return configErr("GGTT size 0x%x leaves no room above the pin bias",
			c.GGTTSize)
	}

	switch c.Recorder.Backend {
	case "", RecorderNone:
	case RecorderSQLite:
	case RecorderClickHouse:
		if c.Recorder.Addr == "" {
			return configErr("clickhouse recorder needs an address")
		}
	default:
		return configErr("unknown recorder backend %q", c.Recorder.Backend)
	}

	return nil
}

func configErr(format string, args ...any) error {
	return &ggtt.ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// DeviceInfo converts the facts into what the channel builder takes.
func (c DeviceConfig) DeviceInfo() guc.DeviceInfo {
	return guc.DeviceInfo{
		Gen:                          c.Gen,
		GTType:                       c.GTType,
		LogLevel:                     c.LogLevel,
		Submission:                   c.Submission,
		Preemption:                   c.Preemption,
		HasCT:                        c.HasCT,
		HasRC6:                       c.HasRC6,
		WaRsDisableCoarsePowerGating: c.WaCoarsePG,
		WOPCMSize:                    c.WOPCMSize,
		GuCWOPCMBase:                 c.GuCWOPCMBase,
		GGTTSize:                     c.GGTTSize,
	}
}

// ObjectStore returns the store that backs shared regions within the
// memory budget.
func (c DeviceConfig) ObjectStore() *ggtt.HeapStore {
	return ggtt.NewHeapStore(c.MemoryBudget)
}
