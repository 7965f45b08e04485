/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package counter

import (
	"fmt"
)

// Command is written to the control register to drive the FSM
type Command uint32

const (
	CmdNone Command = iota
	CmdGotoIdle
	CmdReset
	CmdCountImmediately
	CmdCountTriggered
	CmdCountGated
	CmdTrigger
)

var commandNames = map[Command]string{
	CmdNone:             "none",
	CmdGotoIdle:         "gotoIdle",
	CmdReset:            "reset",
	CmdCountImmediately: "countImmediately",
	CmdCountTriggered:   "countTriggered",
	CmdCountGated:       "countGated",
	CmdTrigger:          "trigger",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", uint32(c))
}

// State is the FSM state reported by the control register.
// It is owned by the hardware, software only observes it.
type State uint32

const (
	StateIdle State = iota
	StateImmediateCountingStart
	StateImmediateCountingWaitForTimeout
	StateTriggeredCountingWaitForTrigger
	StateTriggeredCountingStore
	StateTriggeredCountingPredelay
	StateTriggeredCountingPrestore
	StateTriggeredCountingWaitForTimeout
	StateGatedCountingWaitForGateRise
	StateGatedCountingWaitForGateFall
	StateGatedCountingPrestore
	StateGatedCountingStore
	StateLimit
)

var StateNames = [StateLimit]string{
	"idle",
	"immediateCountingStart",
	"immediateCountingWaitForTimeout",
	"triggeredCountingWaitForTrigger",
	"triggeredCountingStore",
	"triggeredCountingPredelay",
	"triggeredCountingPrestore",
	"triggeredCountingWaitForTimeout",
	"gatedCountingWaitForGateRise",
	"gatedCountingWaitForGateFall",
	"gatedCountingPrestore",
	"gatedCountingStore",
}

func (s State) Valid() bool {
	return s < StateLimit
}

func (s State) String() string {
	if s.Valid() {
		return StateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// ParseState finds the state by its protocol name
func ParseState(name string) (State, error) {
	for i, n := range StateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, ErrRange{What: fmt.Sprintf("Unknown state '%s'", name)}
}

// Family partitions the states by counting mode
type Family int

const (
	FamilyUnknown Family = iota
	FamilyIdle
	FamilyImmediate
	FamilyTriggered
	FamilyGated
)

func (f Family) String() string {
	switch f {
	case FamilyIdle:
		return "idle"
	case FamilyImmediate:
		return "immediate"
	case FamilyTriggered:
		return "triggered"
	case FamilyGated:
		return "gated"
	}
	return "unknown"
}

func (s State) Family() Family {
	switch s {
	case StateIdle:
		return FamilyIdle
	case StateImmediateCountingStart,
		StateImmediateCountingWaitForTimeout:
		return FamilyImmediate
	case StateTriggeredCountingWaitForTrigger,
		StateTriggeredCountingStore,
		StateTriggeredCountingPredelay,
		StateTriggeredCountingPrestore,
		StateTriggeredCountingWaitForTimeout:
		return FamilyTriggered
	case StateGatedCountingWaitForGateRise,
		StateGatedCountingWaitForGateFall,
		StateGatedCountingPrestore,
		StateGatedCountingStore:
		return FamilyGated
	}
	return FamilyUnknown
}

// TriggerConfig selects and conditions the trigger inputs.
// Mask bit n enables input pin n+1, InvertMask bit n inverts it,
// Polarity inverts the or-ed result.
type TriggerConfig struct {
	Mask       uint32 `json:"mask"`
	InvertMask uint32 `json:"invert_mask"`
	Polarity   bool   `json:"polarity"`
}

func (tc TriggerConfig) String() string {
	polarity := 0
	if tc.Polarity {
		polarity = 1
	}
	return fmt.Sprintf("%d,%d,%d", tc.Mask, tc.InvertMask, polarity)
}

// Counts holds one rate value per channel in counts per second
type Counts [NumChannels]float64
