package guc

// Suspend tells the controller the device is entering a low power state.
// The controller saves its state into the shared data page.
func (c *Channel) Suspend() error {
	_, err := c.Send([]uint32{
		ActionEnterSState,
		PowerD1,
		c.sharedDataOffset(),
	})

	return err
}

// Resume tells the controller the device is back at full power.
func (c *Channel) Resume() error {
	_, err := c.Send([]uint32{
		ActionExitSState,
		PowerD0,
		c.sharedDataOffset(),
	})

	return err
}

// ResetEngine asks the controller to reset an engine on behalf of the
// submission client.
func (c *Channel) ResetEngine(engineID uint32) error {
	client := c.client.Load()
	if client == nil {
		return ErrNoClient
	}

	_, err := c.Send([]uint32{
		ActionRequestEngineReset,
		engineID,
		0,
		0,
		0,
		client.StageID,
		c.sharedDataOffset(),
	})

	return err
}

// AuthenticateHuC asks the controller to verify the HuC firmware whose
// signature is at rsaOffset.
func (c *Channel) AuthenticateHuC(rsaOffset uint32) error {
	_, err := c.Send([]uint32{ActionAuthenticateHuC, rsaOffset})
	return err
}

// SampleForcewake tells the controller which power domains it may gate by
// itself.
func (c *Channel) SampleForcewake() error {
	var domains uint32
	if c.dev.HasRC6 && !c.dev.WaRsDisableCoarsePowerGating {
		domains = ForcewakeRender | ForcewakeMedia
	}

	_, err := c.Send([]uint32{ActionSampleForcewake, domains})

	return err
}

// ForceLogBufferFlush asks the controller to post a log flush request.
func (c *Channel) ForceLogBufferFlush() error {
	_, err := c.Send([]uint32{ActionForceLogBufferFlush, 0})
	return err
}

// Log control word fields.
const (
	logControlLoggingEnabled = 1 << 0
	logControlVerbosityShift = 4
	logControlDefaultLogging = 1 << 8
)

// SetLogVerbosity changes the verbosity of the controller log. A negative
// level disables logging.
func (c *Channel) SetLogVerbosity(level int, defaultLogging bool) error {
	var control uint32
	if level >= 0 {
		if level > int(ctlLogVerbosityMax) {
			level = int(ctlLogVerbosityMax)
		}

		control = logControlLoggingEnabled |
			uint32(level)<<logControlVerbosityShift
	}

	if defaultLogging {
		control |= logControlDefaultLogging
	}

	_, err := c.Send([]uint32{ActionUKLogEnableLogging, control})

	return err
}

// CTB types.
const (
	CTBTypeHostToGuC uint32 = 0
	CTBTypeGuCToHost uint32 = 1
)

// RegisterCTB hands a command transport buffer to the controller. This is
// one of the two actions still sent through the registers once the command
// transport exists.
func (c *Channel) RegisterCTB(descOffset, descSize, ctbType uint32) error {
	_, err := c.Send([]uint32{ActionRegisterCTB, descOffset, descSize, ctbType})
	return err
}

// DeregisterCTB takes a command transport buffer back.
func (c *Channel) DeregisterCTB(ctbType uint32) error {
	_, err := c.Send([]uint32{ActionDeregisterCTB, 0, ctbType})
	return err
}

func (c *Channel) sharedDataOffset() uint32 {
	if c.sharedData == nil {
		panic("guc: shared data page is not created")
	}

	return c.sharedData.Offset()
}
