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
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/regs"
)

const DefaultPollInterval = 100 * time.Microsecond

// Option ...
type Option func(*Engine)

// WithoutRunGuard lets runs from different callers interleave on the hardware
func WithoutRunGuard() Option {
	return func(e *Engine) {
		e.guarded = false
	}
}

// WithPollInterval sets the pause between two state reads while waiting.
// Zero means busy polling.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.pollInterval = d
	}
}

// WithWaitTimeout bounds every state wait. Zero means wait until the context is done.
func WithWaitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.waitTimeout = d
	}
}

// Engine drives the counter FSM through its register block.
// All methods are safe to call from many goroutines, but only Reset,
// Count, CountSingle and WaitAndReadAndStartCounting are serialised
// against each other by the run guard.
type Engine struct {
	block        *regs.Block
	run          sync.Mutex
	guarded      bool
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Settings is a snapshot of the writable counter configuration
type Settings struct {
	CountingTime float64       `json:"counting_time"`
	NumberOfBins uint32        `json:"number_of_bins"`
	Repetitions  uint32        `json:"repetitions"`
	Predelay     float64       `json:"predelay"`
	Trigger      TriggerConfig `json:"trigger"`
	BinsSplitted bool          `json:"bins_splitted"`
	Gating       bool          `json:"gating"`
	DebugMode    bool          `json:"debug_mode"`
}

// NewEngine ...
func NewEngine(block *regs.Block, opts ...Option) *Engine {
	e := &Engine{
		block:        block,
		guarded:      true,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open maps the register window
func (e *Engine) Open() error {
	return e.block.Open()
}

// Close unmaps the register window
func (e *Engine) Close() error {
	return e.block.Close()
}

func (e *Engine) Guarded() bool {
	return e.guarded
}

func (e *Engine) lock() func() {
	if !e.guarded {
		return func() {}
	}
	e.run.Lock()
	return e.run.Unlock
}

// SendCommand writes cmd to the control register. The hardware
// transition happens asynchronously.
func (e *Engine) SendCommand(cmd Command) error {
	log.Debug("Send command %s", cmd)
	return e.block.WriteWord(RegMap[RegControl], uint32(cmd)&ControlMask)
}

func (e *Engine) readState() (State, error) {
	v, err := e.block.Get(FieldControl)
	return State(v), err
}

// GetState returns the current FSM state
func (e *Engine) GetState() (State, error) {
	s, err := e.readState()
	if err != nil {
		return 0, err
	}
	if !s.Valid() {
		return s, ErrUnknownState{Value: uint32(s)}
	}
	return s, nil
}

// WaitForState polls the control register until it reports target.
// It returns ErrTimeout when the engine wait timeout expires and the
// context error when ctx is done first.
func (e *Engine) WaitForState(ctx context.Context, target State) error {
	var deadline time.Time
	if e.waitTimeout > 0 {
		deadline = time.Now().Add(e.waitTimeout)
	}
	var ticker *time.Ticker
	if e.pollInterval > 0 {
		ticker = time.NewTicker(e.pollInterval)
		defer ticker.Stop()
	}
	for {
		s, err := e.readState()
		if err != nil {
			return err
		}
		if s == target {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			log.Warning("Timeout while waiting for state %s, current state %s", target, s)
			return ErrTimeout{State: target}
		}
		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func secondsToTicks(what string, seconds float64) (uint32, error) {
	ticks := math.Round(seconds * ClockFrequency)
	if ticks > math.MaxUint32 {
		return 0, ErrRange{What: fmt.Sprintf("%s %g s exceeds %g s", what, seconds,
			float64(math.MaxUint32)/ClockFrequency)}
	}
	return uint32(ticks), nil
}

func ticksToSeconds(ticks uint32) float64 {
	return float64(ticks) / ClockFrequency
}

// SetCountingTime sets the immediate counting duration in seconds
func (e *Engine) SetCountingTime(seconds float64) error {
	if !(seconds > 0) {
		return ErrRange{What: fmt.Sprintf("Invalid counting duration %g", seconds)}
	}
	ticks, err := secondsToTicks("Counting duration", seconds)
	if err != nil {
		return err
	}
	if ticks == 0 {
		return ErrRange{What: fmt.Sprintf("Counting duration %g s is below one clock cycle", seconds)}
	}
	return e.block.Set(FieldTimeout, ticks)
}

func (e *Engine) GetCountingTime() (float64, error) {
	ticks, err := e.block.Get(FieldTimeout)
	if err != nil {
		return 0, err
	}
	return ticksToSeconds(ticks), nil
}

// SetNumberOfBins stores n-1 in the bins register. Zero is written
// as register value 0 and reads back as 1.
func (e *Engine) SetNumberOfBins(n uint32) error {
	if n > MaxBins {
		return ErrRange{What: fmt.Sprintf("Number of bins out of range: must be 1-%d", MaxBins)}
	}
	if n == 0 {
		log.Warning("Number of bins 0 is stored as 1")
		return e.block.Set(FieldNumberOfBins, 0)
	}
	return e.block.Set(FieldNumberOfBins, n-1)
}

func (e *Engine) GetNumberOfBins() (uint32, error) {
	v, err := e.block.Get(FieldNumberOfBins)
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}

// SetRepetitions sets how many times the bins are swept in triggered counting
func (e *Engine) SetRepetitions(n uint32) error {
	if n < 1 || n > RepetitionsMask {
		return ErrRange{What: fmt.Sprintf("Number of repetitions out of range: must be 1-%d", RepetitionsMask)}
	}
	return e.block.Set(FieldRepetitions, n)
}

func (e *Engine) GetRepetitions() (uint32, error) {
	return e.block.Get(FieldRepetitions)
}

// SetPredelay sets the delay between trigger and counting window in seconds
func (e *Engine) SetPredelay(seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) {
		return ErrRange{What: "Predelay must be >= 0"}
	}
	ticks, err := secondsToTicks("Predelay", seconds)
	if err != nil {
		return err
	}
	return e.block.Set(FieldPredelay, ticks)
}

func (e *Engine) GetPredelay() (float64, error) {
	ticks, err := e.block.Get(FieldPredelay)
	if err != nil {
		return 0, err
	}
	return ticksToSeconds(ticks), nil
}

func rate(counts, duration uint32) float64 {
	if duration == 0 {
		return 0
	}
	return float64(counts) / float64(duration) * ClockFrequency
}

// GetCounts returns the rates of the last counting window
func (e *Engine) GetCounts() (Counts, error) {
	var c Counts
	duration, err := e.block.Get(FieldDuration)
	if err != nil {
		return c, err
	}
	for i := 0; i < NumChannels; i++ {
		raw, err := e.block.Get(FieldCounts[i])
		if err != nil {
			return c, err
		}
		c[i] = rate(raw, duration)
	}
	return c, nil
}

func (e *Engine) SetTriggerConfig(tc TriggerConfig) error {
	if tc.Mask > TriggerMaskMax {
		return ErrRange{What: fmt.Sprintf("Trigger mask %d out of range: must be 0-%d", tc.Mask, TriggerMaskMax)}
	}
	if tc.InvertMask > TriggerMaskMax {
		return ErrRange{What: fmt.Sprintf("Trigger invert mask %d out of range: must be 0-%d", tc.InvertMask, TriggerMaskMax)}
	}
	if err := e.block.Set(FieldTriggerMask, tc.Mask); err != nil {
		return err
	}
	if err := e.block.Set(FieldTriggerInvert, tc.InvertMask); err != nil {
		return err
	}
	return e.block.SetBool(FieldTriggerPolarity, tc.Polarity)
}

func (e *Engine) GetTriggerConfig() (TriggerConfig, error) {
	var tc TriggerConfig
	var err error
	if tc.Mask, err = e.block.Get(FieldTriggerMask); err != nil {
		return tc, err
	}
	if tc.InvertMask, err = e.block.Get(FieldTriggerInvert); err != nil {
		return tc, err
	}
	tc.Polarity, err = e.block.GetBool(FieldTriggerPolarity)
	return tc, err
}

func (e *Engine) SetBinsSplitted(splitted bool) error {
	return e.block.SetBool(FieldSplitBins, splitted)
}

func (e *Engine) GetBinsSplitted() (bool, error) {
	return e.block.GetBool(FieldSplitBins)
}

func (e *Engine) SetGating(enabled bool) error {
	return e.block.SetBool(FieldGating, enabled)
}

func (e *Engine) GetGating() (bool, error) {
	return e.block.GetBool(FieldGating)
}

func (e *Engine) GetBinAddress() (uint32, error) {
	return e.block.Get(FieldAddress)
}

func (e *Engine) GetRepetitionCounter() (uint32, error) {
	return e.block.Get(FieldRepetition)
}

func clampBins(n uint32) int {
	if n > MaxBins {
		return MaxBins
	}
	return int(n)
}

// GetBinData returns the rates of the first n bins of every channel
func (e *Engine) GetBinData(n uint32) ([NumChannels][]float64, error) {
	var data [NumChannels][]float64
	bins := clampBins(n)
	durations := make([]uint32, bins)
	for i := range durations {
		d, err := e.block.ReadWord(BinAddr(DurationBinsOffset, i))
		if err != nil {
			return data, err
		}
		durations[i] = d
	}
	for ch := 0; ch < NumChannels; ch++ {
		data[ch] = make([]float64, bins)
		for i := 0; i < bins; i++ {
			raw, err := e.block.ReadWord(BinAddr(BinsOffset[ch], i))
			if err != nil {
				return data, err
			}
			data[ch][i] = rate(raw, durations[i])
		}
	}
	return data, nil
}

// ResetBinDataPartially zeroes the first n count and duration bins
func (e *Engine) ResetBinDataPartially(n uint32) error {
	bins := clampBins(n)
	for _, base := range []uint32{BinsCh1Offset, BinsCh2Offset, DurationBinsOffset} {
		for i := 0; i < bins; i++ {
			if err := e.block.WriteWord(BinAddr(base, i), 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) ResetBinData() error {
	return e.ResetBinDataPartially(MaxBins)
}

// Reset sends the reset command and waits for idle
func (e *Engine) Reset(ctx context.Context) error {
	defer e.lock()()
	if err := e.SendCommand(CmdReset); err != nil {
		return err
	}
	return e.WaitForState(ctx, StateIdle)
}

func (e *Engine) count(ctx context.Context, n int) ([]Counts, error) {
	result := make([]Counts, 0, n)
	for j := 0; j < n; j++ {
		if err := e.SendCommand(CmdCountImmediately); err != nil {
			return nil, err
		}
		if err := e.WaitForState(ctx, StateIdle); err != nil {
			return nil, err
		}
		c, err := e.GetCounts()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// Count runs n immediate counting windows back to back
func (e *Engine) Count(ctx context.Context, n int) ([]Counts, error) {
	defer e.lock()()
	return e.count(ctx, n)
}

// CountSingle waits for a running window to finish and counts once
func (e *Engine) CountSingle(ctx context.Context) (Counts, error) {
	defer e.lock()()
	if err := e.WaitForState(ctx, StateIdle); err != nil {
		return Counts{}, fmt.Errorf("Failed waiting for idle: %w", err)
	}
	result, err := e.count(ctx, 1)
	if err != nil {
		return Counts{}, err
	}
	return result[0], nil
}

// WaitAndReadAndStartCounting returns the counts of the window in
// progress and starts the next one without waiting for it.
func (e *Engine) WaitAndReadAndStartCounting(ctx context.Context) (Counts, error) {
	defer e.lock()()
	if err := e.WaitForState(ctx, StateIdle); err != nil {
		return Counts{}, err
	}
	c, err := e.GetCounts()
	if err != nil {
		return c, err
	}
	return c, e.SendCommand(CmdCountImmediately)
}

func (e *Engine) SetTriggeredCounting(enabled bool) error {
	if enabled {
		return e.SendCommand(CmdCountTriggered)
	}
	return e.SendCommand(CmdGotoIdle)
}

func (e *Engine) SetGatedCounting(enabled bool) error {
	if enabled {
		return e.SendCommand(CmdCountGated)
	}
	return e.SendCommand(CmdGotoIdle)
}

func (e *Engine) family() (Family, error) {
	s, err := e.readState()
	if err != nil {
		return FamilyUnknown, err
	}
	f := s.Family()
	if f == FamilyUnknown {
		return f, ErrRange{What: ErrUnknownState{Value: uint32(s)}.Error()}
	}
	return f, nil
}

func (e *Engine) GetTriggeredCounting() (bool, error) {
	f, err := e.family()
	return f == FamilyTriggered, err
}

func (e *Engine) GetGatedCounting() (bool, error) {
	f, err := e.family()
	return f == FamilyGated, err
}

// Trigger fires a manual trigger
func (e *Engine) Trigger() error {
	return e.SendCommand(CmdTrigger)
}

func (e *Engine) GetDNA() (uint32, error) {
	return e.block.Get(FieldDNA)
}

func (e *Engine) GetClock() (uint32, error) {
	return e.block.Get(FieldClock)
}

// ReadMemory reads the raw word at addr inside the counter window
func (e *Engine) ReadMemory(addr uint32) (uint32, error) {
	return e.block.ReadWord(addr)
}

func (e *Engine) SetDebugMode(enabled bool) error {
	return e.block.SetBool(FieldDebugMode, enabled)
}

func (e *Engine) GetDebugMode() (bool, error) {
	return e.block.GetBool(FieldDebugMode)
}

// GetSettings reads back every writable setting
func (e *Engine) GetSettings() (Settings, error) {
	var s Settings
	var err error
	if s.CountingTime, err = e.GetCountingTime(); err != nil {
		return s, err
	}
	if s.NumberOfBins, err = e.GetNumberOfBins(); err != nil {
		return s, err
	}
	if s.Repetitions, err = e.GetRepetitions(); err != nil {
		return s, err
	}
	if s.Predelay, err = e.GetPredelay(); err != nil {
		return s, err
	}
	if s.Trigger, err = e.GetTriggerConfig(); err != nil {
		return s, err
	}
	if s.BinsSplitted, err = e.GetBinsSplitted(); err != nil {
		return s, err
	}
	if s.Gating, err = e.GetGating(); err != nil {
		return s, err
	}
	s.DebugMode, err = e.GetDebugMode()
	return s, err
}
