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

package sim

import (
	"sync"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/regs"
)

const (
	DefaultDNA = 0x0C0FFEE0
)

// Option ...
type Option func(*Counter)

// WithClock replaces the wall clock used to time counting windows
func WithClock(now func() time.Time) Option {
	return func(c *Counter) {
		c.now = now
	}
}

// WithRates sets the simulated input rate of every channel in counts per second
func WithRates(rates counter.Counts) Option {
	return func(c *Counter) {
		c.rates = rates
	}
}

// Counter is a software model of the counter core. It implements
// regs.Window over the counter register layout. Time only advances
// when the window is accessed.
type Counter struct {
	mu    sync.Mutex
	mem   *regs.Memory
	now   func() time.Time
	rates counter.Counts

	state counter.State
	// start of the current counting window or predelay
	since time.Time
	gate  bool
}

var _ regs.Window = &Counter{}

var readOnly = map[uint32]bool{
	counter.RegMap[counter.RegCountsCh1]:  true,
	counter.RegMap[counter.RegCountsCh2]:  true,
	counter.RegMap[counter.RegAddress]:    true,
	counter.RegMap[counter.RegRepetition]: true,
	counter.RegMap[counter.RegDNA]:        true,
	counter.RegMap[counter.RegClock]:      true,
	counter.RegMap[counter.RegDuration]:   true,
}

// New ...
func New(opts ...Option) *Counter {
	c := &Counter{
		mem:   regs.NewMemory(counter.CounterBaseSize),
		now:   time.Now,
		rates: counter.Counts{1000, 1000},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.poke(counter.RegDNA, DefaultDNA)
	c.poke(counter.RegClock, counter.ClockFrequency)
	c.poke(counter.RegRepetitions, 1)
	return c
}

// Opener hands the simulator to a register block
func (c *Counter) Opener() regs.Opener {
	return func() (regs.Window, error) {
		return c, nil
	}
}

func (c *Counter) poke(alias counter.RegAlias, value uint32) {
	_ = c.mem.WriteWord(counter.RegMap[alias], value)
}

func (c *Counter) peek(alias counter.RegAlias) uint32 {
	v, _ := c.mem.ReadWord(counter.RegMap[alias])
	return v
}

func (c *Counter) configBit(f regs.Field) bool {
	return (c.peek(counter.RegConfig)>>f.Shift)&f.Mask != 0
}

func (c *Counter) ReadWord(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance()
	if offset == counter.RegMap[counter.RegControl] {
		return uint32(c.state), nil
	}
	return c.mem.ReadWord(offset)
}

func (c *Counter) WriteWord(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance()
	if offset == counter.RegMap[counter.RegControl] {
		c.command(counter.Command(value & counter.ControlMask))
		return nil
	}
	if readOnly[offset] {
		return nil
	}
	return c.mem.WriteWord(offset, value)
}

func (c *Counter) Size() uint32 {
	return c.mem.Size()
}

func (c *Counter) Close() error {
	return nil
}

// State returns the FSM state without advancing time
func (c *Counter) State() counter.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetRates changes the simulated input rates
func (c *Counter) SetRates(rates counter.Counts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = rates
}

// SetGate drives the external gate input
func (c *Counter) SetGate(high bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance()
	if high == c.gate {
		return
	}
	c.gate = high
	now := c.now()
	switch {
	case high && c.state == counter.StateGatedCountingWaitForGateRise:
		c.state = counter.StateGatedCountingWaitForGateFall
		c.since = now
	case !high && c.state == counter.StateGatedCountingWaitForGateFall:
		c.state = counter.StateGatedCountingStore
		c.store(now.Sub(c.since))
		c.state = counter.StateGatedCountingWaitForGateRise
	}
}

func (c *Counter) command(cmd counter.Command) {
	now := c.now()
	log.Debug("Simulated counter got command %s in state %s", cmd, c.state)
	switch cmd {
	case counter.CmdNone:
	case counter.CmdGotoIdle:
		c.state = counter.StateIdle
	case counter.CmdReset:
		for _, alias := range []counter.RegAlias{
			counter.RegCountsCh1, counter.RegCountsCh2, counter.RegDuration,
			counter.RegAddress, counter.RegRepetition,
		} {
			c.poke(alias, 0)
		}
		c.state = counter.StateIdle
	case counter.CmdCountImmediately:
		c.state = counter.StateImmediateCountingWaitForTimeout
		c.since = now
	case counter.CmdCountTriggered:
		c.poke(counter.RegAddress, 0)
		c.poke(counter.RegRepetition, 0)
		c.state = counter.StateTriggeredCountingWaitForTrigger
	case counter.CmdCountGated:
		c.poke(counter.RegAddress, 0)
		c.poke(counter.RegRepetition, 0)
		if c.gate {
			c.state = counter.StateGatedCountingWaitForGateFall
			c.since = now
		} else {
			c.state = counter.StateGatedCountingWaitForGateRise
		}
	case counter.CmdTrigger:
		if c.state == counter.StateTriggeredCountingWaitForTrigger {
			c.state = counter.StateTriggeredCountingPredelay
			c.since = now
			c.advance()
		}
	}
}

// span converts a tick register to wall time
func (c *Counter) span(alias counter.RegAlias) time.Duration {
	return time.Duration(c.peek(alias)) * time.Second / counter.ClockFrequency
}

// advance moves the FSM along the time elapsed since the last access
func (c *Counter) advance() {
	now := c.now()
	for {
		switch c.state {
		case counter.StateImmediateCountingStart,
			counter.StateImmediateCountingWaitForTimeout:
			window := c.span(counter.RegTimeout)
			if now.Sub(c.since) < window {
				return
			}
			c.latch(window)
			c.state = counter.StateIdle
			return
		case counter.StateTriggeredCountingPredelay:
			delay := c.span(counter.RegPredelay)
			if now.Sub(c.since) < delay {
				return
			}
			c.since = c.since.Add(delay)
			c.state = counter.StateTriggeredCountingWaitForTimeout
		case counter.StateTriggeredCountingWaitForTimeout:
			window := c.span(counter.RegTimeout)
			if now.Sub(c.since) < window {
				return
			}
			c.since = c.since.Add(window)
			c.state = counter.StateTriggeredCountingStore
			if !c.store(window) {
				c.state = counter.StateIdle
				return
			}
			if c.configBit(counter.FieldSplitBins) || c.peek(counter.RegAddress) == 0 {
				c.state = counter.StateTriggeredCountingWaitForTrigger
				return
			}
			c.state = counter.StateTriggeredCountingWaitForTimeout
		default:
			return
		}
	}
}

func (c *Counter) events(window time.Duration) [counter.NumChannels]uint32 {
	var n [counter.NumChannels]uint32
	for i, r := range c.rates {
		n[i] = uint32(r * window.Seconds())
	}
	return n
}

func durationTicks(window time.Duration) uint32 {
	return uint32(window.Seconds() * counter.ClockFrequency)
}

// latch publishes the result of an immediate counting window
func (c *Counter) latch(window time.Duration) {
	n := c.events(window)
	c.poke(counter.RegCountsCh1, n[0])
	c.poke(counter.RegCountsCh2, n[1])
	c.poke(counter.RegDuration, durationTicks(window))
}

// store adds a window to the bin at the current address and moves the
// address on. It returns false once all repetitions are done.
func (c *Counter) store(window time.Duration) bool {
	c.latch(window)
	addr := c.peek(counter.RegAddress)
	n := c.events(window)
	for ch := 0; ch < counter.NumChannels; ch++ {
		off := counter.BinAddr(counter.BinsOffset[ch], int(addr))
		v, _ := c.mem.ReadWord(off)
		_ = c.mem.WriteWord(off, v+n[ch])
	}
	off := counter.BinAddr(counter.DurationBinsOffset, int(addr))
	v, _ := c.mem.ReadWord(off)
	_ = c.mem.WriteWord(off, v+durationTicks(window))

	bins := c.peek(counter.RegNumberOfBins)&counter.NumberOfBinsMask + 1
	addr++
	if addr < bins {
		c.poke(counter.RegAddress, addr)
		return true
	}
	c.poke(counter.RegAddress, 0)
	rep := c.peek(counter.RegRepetition) + 1
	c.poke(counter.RegRepetition, rep)
	if c.state == counter.StateGatedCountingStore {
		return true
	}
	return rep < c.peek(counter.RegRepetitions)
}

// StepClock returns a clock that moves on by step every time it is read.
// It makes simulated runs independent of the host speed.
func StepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}
