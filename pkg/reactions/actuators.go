package reactions

import (
	"fmt"
	"log"
)

// LogActuators only logs what would be actuated.
type LogActuators struct{}

var _ Actuators = LogActuators{}

func (LogActuators) SetRadioPower(level RadioPower) error {
	log.Printf("Radio power %v", level)
	return nil
}

func (LogActuators) PlayTones(tones []Tone) error {
	log.Printf("Playing %d tones", len(tones))
	return nil
}

func (LogActuators) SetPyro(channel int, on bool) error {
	log.Printf("Pyro %d on=%t", channel, on)
	return nil
}

// Sender delivers a command line to the board.
type Sender interface {
	Send(cmd string) error
}

// CommandActuators translates actuations into board commands:
//
//	RADIO <level>
//	TONE <hz> <duration ms> <pause ms>
//	PYRO <channel> <0|1>
type CommandActuators struct {
	sender Sender
}

var _ Actuators = (*CommandActuators)(nil)

// NewCommandActuators creates actuators sending commands through s.
func NewCommandActuators(s Sender) *CommandActuators {
	return &CommandActuators{sender: s}
}

func (c *CommandActuators) SetRadioPower(level RadioPower) error {
	return c.sender.Send(fmt.Sprintf("RADIO %d", level))
}

func (c *CommandActuators) PlayTones(tones []Tone) error {
	for _, t := range tones {
		cmd := fmt.Sprintf("TONE %.0f %d %d", t.Frequency, t.Duration.Milliseconds(), t.Pause.Milliseconds())
		if err := c.sender.Send(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (c *CommandActuators) SetPyro(channel int, on bool) error {
	if channel < 0 || channel >= PyroChannels {
		return fmt.Errorf("pyro channel %d out of range [0, %d)", channel, PyroChannels)
	}
	state := 0
	if on {
		state = 1
	}
	return c.sender.Send(fmt.Sprintf("PYRO %d %d", channel, state))
}
