package knee

import (
	"fmt"
	"strings"
)

// GaitState identifies the active phase of the gait cycle. The numeric
// values match the state ids reported on the telemetry bus.
type GaitState uint8

const (
	EarlyStance GaitState = iota
	PreSwingStance
	SwingFlexion
	SwingExtension
	IdleStance

	numStates = 5
)

// States lists every gait state in id order.
var States = [numStates]GaitState{EarlyStance, PreSwingStance, SwingFlexion, SwingExtension, IdleStance}

var stateNames = [numStates]string{
	EarlyStance:    "early_stance",
	PreSwingStance: "pre_swing",
	SwingFlexion:   "swing_flexion",
	SwingExtension: "swing_extension",
	IdleStance:     "idle",
}

func (s GaitState) Valid() bool {
	return s < numStates
}

func (s GaitState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("state(%d)", uint8(s))
	}
	return stateNames[s]
}

// Stance reports whether the limb is expected to bear load in this state.
func (s GaitState) Stance() bool {
	return s == EarlyStance || s == PreSwingStance || s == IdleStance
}

// ParseState accepts either a state name or its numeric id.
func ParseState(name string) (GaitState, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range States {
		if stateNames[s] == name || fmt.Sprint(uint8(s)) == name {
			return s, nil
		}
	}
	return IdleStance, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// MarshalText encodes the state by name so configs and run metadata stay readable.
func (s GaitState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *GaitState) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
