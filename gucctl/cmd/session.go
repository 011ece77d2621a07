package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/config"
	"github.com/sarchlab/guclink/datarecording"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/simguc"
	"github.com/sarchlab/guclink/timing"
)

// session is one channel booted against a simulated controller.
type session struct {
	cfg      config.DeviceConfig
	log      logr.Logger
	bank     *mmio.Bank
	fw       *simguc.Firmware
	channel  *guc.Channel
	recorder *datarecording.ChannelRecorder
}

// dirSink stores every captured log buffer as a file in a directory.
type dirSink struct {
	dir  string
	name string
}

func (s dirSink) Consume(snapshot guc.LogSnapshot) error {
	path := filepath.Join(s.dir,
		fmt.Sprintf("%s_log_%06d.bin", s.name, snapshot.Seq))

	return os.WriteFile(path, snapshot.Data, 0o644)
}

func newSession(
	cfg config.DeviceConfig,
	log logr.Logger,
	logDir string,
) (*session, error) {
	s := &session{
		cfg:  cfg,
		log:  log,
		bank: mmio.NewBank(),
	}

	clock := timing.WallClock{}

	s.fw = simguc.MakeBuilder().
		WithClock(clock).
		WithLogger(log).
		Build(s.bank)

	builder := guc.MakeBuilder().
		WithRegisters(s.bank).
		WithDevice(cfg.DeviceInfo()).
		WithClock(clock).
		WithLogger(log).
		WithObjectStore(cfg.ObjectStore())

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, err
		}

		builder = builder.WithLogSink(dirSink{dir: logDir, name: cfg.Name})
	}

	s.channel = builder.Build(cfg.Name)
	s.fw.OnInterrupt(s.channel.HandleEvents)

	recorder, err := newRecorder(cfg.Recorder)
	if err != nil {
		return nil, err
	}

	if recorder != nil {
		s.recorder = datarecording.NewChannelRecorder(recorder,
			map[string]string{
				"Device": cfg.Name,
				"Gen":    fmt.Sprint(cfg.Gen),
			})
		s.channel.AcceptHook(s.recorder)
	}

	return s, nil
}

func newRecorder(
	cfg config.RecorderConfig,
) (datarecording.DataRecorder, error) {
	switch cfg.Backend {
	case config.RecorderSQLite:
		return datarecording.New(cfg.Path), nil
	case config.RecorderClickHouse:
		return datarecording.NewClickHouseRecorder(
			datarecording.ClickHouseOptions{
				Addr:     cfg.Addr,
				Database: cfg.Database,
				Username: cfg.Username,
				Password: cfg.Password,
			})
	default:
		return nil, nil
	}
}

// start runs the host side of a controller load: it prepares the mailbox,
// creates the shared regions and writes the parameter block.
func (s *session) start() error {
	s.channel.InitSendRegs()

	if err := s.channel.InitPinBias(); err != nil {
		return err
	}

	if err := s.channel.InitWQ(); err != nil {
		return err
	}

	if err := s.channel.Init(); err != nil {
		s.channel.FiniWQ()
		return err
	}

	if err := s.channel.Boot(); err != nil {
		s.channel.Fini()
		s.channel.FiniWQ()

		return err
	}

	s.log.Info("controller booted",
		"channel", s.channel.Name(),
		"pinBias", fmt.Sprintf("0x%x", s.channel.PinBias()))

	return nil
}

// stop tears the channel down and flushes the recorder.
func (s *session) stop() {
	s.channel.FiniWQ()
	s.channel.Fini()

	if s.recorder != nil {
		s.recorder.Stop()
	}
}
