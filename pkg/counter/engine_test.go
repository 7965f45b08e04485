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

package counter_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/regs"
	"jinr.ru/greenlab/go-counter/pkg/sim"
)

func newMemoryEngine(t *testing.T, opts ...counter.Option) (*counter.Engine, *regs.Memory) {
	t.Helper()
	mem := regs.NewMemory(counter.CounterBaseSize)
	e := counter.NewEngine(regs.NewBlock("counter", regs.MemoryOpener(mem)), opts...)
	if err := e.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, mem
}

func newSimEngine(t *testing.T, rates counter.Counts) (*counter.Engine, *sim.Counter) {
	t.Helper()
	s := sim.New(
		sim.WithRates(rates),
		sim.WithClock(sim.StepClock(time.Unix(0, 0), time.Millisecond)),
	)
	e := counter.NewEngine(regs.NewBlock("counter", s.Opener()),
		counter.WithPollInterval(0), counter.WithWaitTimeout(5*time.Second))
	if err := e.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, s
}

func poke(t *testing.T, mem *regs.Memory, offset, value uint32) {
	t.Helper()
	if err := mem.WriteWord(offset, value); err != nil {
		t.Fatal(err)
	}
}

func peek(t *testing.T, mem *regs.Memory, offset uint32) uint32 {
	t.Helper()
	v, err := mem.ReadWord(offset)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestNumberOfBinsRoundTrip(t *testing.T) {
	e, _ := newMemoryEngine(t)
	for n := uint32(1); n <= counter.MaxBins; n++ {
		if err := e.SetNumberOfBins(n); err != nil {
			t.Fatalf("set %d: %v", n, err)
		}
		got, err := e.GetNumberOfBins()
		if err != nil {
			t.Fatal(err)
		}
		if got != n {
			t.Fatalf("got %d bins, want %d", got, n)
		}
	}
}

func TestNumberOfBinsZeroAndOverflow(t *testing.T) {
	e, mem := newMemoryEngine(t)
	if err := e.SetNumberOfBins(0); err != nil {
		t.Fatal(err)
	}
	if v := peek(t, mem, counter.RegMap[counter.RegNumberOfBins]); v != 0 {
		t.Fatalf("register holds %d, want 0", v)
	}
	if n, _ := e.GetNumberOfBins(); n != 1 {
		t.Fatalf("zero bins read back as %d, want 1", n)
	}
	var rangeErr counter.ErrRange
	if err := e.SetNumberOfBins(counter.MaxBins + 1); !errors.As(err, &rangeErr) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestGetCounts(t *testing.T) {
	tests := []struct {
		name     string
		counts   [counter.NumChannels]uint32
		duration uint32
		want     counter.Counts
	}{
		{"no duration", [2]uint32{100, 200}, 0, counter.Counts{0, 0}},
		{"one second", [2]uint32{100, 200}, counter.ClockFrequency, counter.Counts{100, 200}},
		{"ten millis", [2]uint32{10, 0}, 1250000, counter.Counts{1000, 0}},
		{"full word", [2]uint32{0xFFFFFFFF, 1}, 1, counter.Counts{0xFFFFFFFF * 125e6, 125e6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, mem := newMemoryEngine(t)
			poke(t, mem, counter.RegMap[counter.RegCountsCh1], tt.counts[0])
			poke(t, mem, counter.RegMap[counter.RegCountsCh2], tt.counts[1])
			poke(t, mem, counter.RegMap[counter.RegDuration], tt.duration)
			got, err := e.GetCounts()
			if err != nil {
				t.Fatal(err)
			}
			for i := range got {
				if !almostEqual(got[i], tt.want[i]) {
					t.Errorf("channel %d: got %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetBinData(t *testing.T) {
	e, mem := newMemoryEngine(t)
	for i := 0; i < 8; i++ {
		poke(t, mem, counter.BinAddr(counter.BinsCh1Offset, i), uint32(i+1))
		poke(t, mem, counter.BinAddr(counter.BinsCh2Offset, i), uint32(2*(i+1)))
		// every odd bin has no duration
		if i%2 == 0 {
			poke(t, mem, counter.BinAddr(counter.DurationBinsOffset, i), counter.ClockFrequency)
		}
	}
	data, err := e.GetBinData(8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		want1, want2 := float64(i+1), float64(2*(i+1))
		if i%2 == 1 {
			want1, want2 = 0, 0
		}
		if data[0][i] != want1 || data[1][i] != want2 {
			t.Errorf("bin %d: got %g,%g want %g,%g", i, data[0][i], data[1][i], want1, want2)
		}
	}

	data, err = e.GetBinData(counter.MaxBins + 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(data[0]) != counter.MaxBins || len(data[1]) != counter.MaxBins {
		t.Fatalf("bins not clamped: %d, %d", len(data[0]), len(data[1]))
	}
}

func TestResetBinDataPartially(t *testing.T) {
	bases := []uint32{counter.BinsCh1Offset, counter.BinsCh2Offset, counter.DurationBinsOffset}
	fill := func(t *testing.T, mem *regs.Memory) {
		for _, base := range bases {
			for i := 0; i < counter.MaxBins; i++ {
				poke(t, mem, counter.BinAddr(base, i), 7)
			}
		}
	}
	for _, k := range []uint32{0, 1, 100, counter.MaxBins, counter.MaxBins + 1} {
		e, mem := newMemoryEngine(t)
		fill(t, mem)
		if err := e.ResetBinDataPartially(k); err != nil {
			t.Fatal(err)
		}
		for _, base := range bases {
			for i := 0; i < counter.MaxBins; i++ {
				v := peek(t, mem, counter.BinAddr(base, i))
				if uint32(i) < k && v != 0 {
					t.Fatalf("k=%d: bin %d at 0x%x not cleared", k, i, base)
				}
				if uint32(i) >= k && v != 7 {
					t.Fatalf("k=%d: bin %d at 0x%x changed to %d", k, i, base, v)
				}
			}
		}
	}

	e, mem := newMemoryEngine(t)
	fill(t, mem)
	if err := e.ResetBinData(); err != nil {
		t.Fatal(err)
	}
	for _, base := range bases {
		if v := peek(t, mem, counter.BinAddr(base, counter.MaxBins-1)); v != 0 {
			t.Fatalf("last bin at 0x%x not cleared", base)
		}
	}
}

func TestCountingFamilies(t *testing.T) {
	e, mem := newMemoryEngine(t)
	for v := uint32(0); v <= counter.ControlMask; v++ {
		poke(t, mem, counter.RegMap[counter.RegControl], v)
		triggered, errT := e.GetTriggeredCounting()
		gated, errG := e.GetGatedCounting()
		if !counter.State(v).Valid() {
			var rangeErr counter.ErrRange
			if !errors.As(errT, &rangeErr) || !errors.As(errG, &rangeErr) {
				t.Errorf("state %d: expected ErrRange, got %v / %v", v, errT, errG)
			}
			continue
		}
		if errT != nil || errG != nil {
			t.Fatalf("state %d: %v / %v", v, errT, errG)
		}
		if triggered && gated {
			t.Errorf("state %s is both triggered and gated", counter.State(v))
		}
		if counter.State(v) == counter.StateIdle && (triggered || gated) {
			t.Errorf("idle reports triggered=%v gated=%v", triggered, gated)
		}
		if triggered != (counter.State(v).Family() == counter.FamilyTriggered) {
			t.Errorf("state %s: triggered=%v", counter.State(v), triggered)
		}
	}
}

func TestGetStateUnknown(t *testing.T) {
	e, mem := newMemoryEngine(t)
	poke(t, mem, counter.RegMap[counter.RegControl], 0xE)
	_, err := e.GetState()
	var unknown counter.ErrUnknownState
	if !errors.As(err, &unknown) || unknown.Value != 0xE {
		t.Fatalf("expected ErrUnknownState{14}, got %v", err)
	}
}

func TestCountingTime(t *testing.T) {
	e, mem := newMemoryEngine(t)
	if err := e.SetCountingTime(0.01); err != nil {
		t.Fatal(err)
	}
	if v := peek(t, mem, counter.RegMap[counter.RegTimeout]); v != 1250000 {
		t.Fatalf("timeout register %d, want 1250000", v)
	}
	got, err := e.GetCountingTime()
	if err != nil || !almostEqual(got, 0.01) {
		t.Fatalf("got %g, %v", got, err)
	}
	for _, bad := range []float64{0, -1, 35, math.NaN(), 1e-10} {
		var rangeErr counter.ErrRange
		if err := e.SetCountingTime(bad); !errors.As(err, &rangeErr) {
			t.Errorf("%g: expected ErrRange, got %v", bad, err)
		}
	}
}

func TestPredelayAndRepetitions(t *testing.T) {
	e, _ := newMemoryEngine(t)
	if err := e.SetPredelay(0); err != nil {
		t.Fatal(err)
	}
	if err := e.SetPredelay(0.5); err != nil {
		t.Fatal(err)
	}
	if d, _ := e.GetPredelay(); !almostEqual(d, 0.5) {
		t.Fatalf("predelay %g", d)
	}
	var rangeErr counter.ErrRange
	if err := e.SetPredelay(-0.1); !errors.As(err, &rangeErr) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	if err := e.SetRepetitions(12); err != nil {
		t.Fatal(err)
	}
	if n, _ := e.GetRepetitions(); n != 12 {
		t.Fatalf("repetitions %d", n)
	}
	for _, bad := range []uint32{0, 0x10000} {
		if err := e.SetRepetitions(bad); !errors.As(err, &rangeErr) {
			t.Errorf("%d: expected ErrRange, got %v", bad, err)
		}
	}
}

func TestTriggerConfig(t *testing.T) {
	e, mem := newMemoryEngine(t)
	if err := e.SetBinsSplitted(true); err != nil {
		t.Fatal(err)
	}
	if err := e.SetGating(true); err != nil {
		t.Fatal(err)
	}
	tc := counter.TriggerConfig{Mask: 0x5, InvertMask: 0xA, Polarity: true}
	if err := e.SetTriggerConfig(tc); err != nil {
		t.Fatal(err)
	}
	if v := peek(t, mem, counter.RegMap[counter.RegConfig]); v != 0x00070A05 {
		t.Fatalf("config register 0x%08x", v)
	}
	got, err := e.GetTriggerConfig()
	if err != nil || got != tc {
		t.Fatalf("got %+v, %v", got, err)
	}
	if got.String() != "5,10,1" {
		t.Fatalf("formatted as %s", got.String())
	}
	if split, _ := e.GetBinsSplitted(); !split {
		t.Fatal("split bins flag lost")
	}
	if err := e.SetGating(false); err != nil {
		t.Fatal(err)
	}
	if v := peek(t, mem, counter.RegMap[counter.RegConfig]); v != 0x00030A05 {
		t.Fatalf("config register 0x%08x after gating off", v)
	}

	var rangeErr counter.ErrRange
	for _, bad := range []counter.TriggerConfig{{Mask: 16}, {InvertMask: 16}} {
		if err := e.SetTriggerConfig(bad); !errors.As(err, &rangeErr) {
			t.Errorf("%+v: expected ErrRange, got %v", bad, err)
		}
	}
}

func TestDiagnostics(t *testing.T) {
	e, mem := newMemoryEngine(t)
	poke(t, mem, counter.RegMap[counter.RegDNA], 0xDEADBEEF)
	poke(t, mem, counter.RegMap[counter.RegClock], 125000000)
	poke(t, mem, counter.RegMap[counter.RegAddress], 0xFFFFFFFF)
	poke(t, mem, 0x40, 42)
	if dna, _ := e.GetDNA(); dna != 0xDEADBEEF {
		t.Errorf("dna 0x%x", dna)
	}
	if clk, _ := e.GetClock(); clk != 125000000 {
		t.Errorf("clock %d", clk)
	}
	if addr, _ := e.GetBinAddress(); addr != counter.AddressMask {
		t.Errorf("bin address 0x%x not masked", addr)
	}
	if v, _ := e.ReadMemory(0x40); v != 42 {
		t.Errorf("memory %d", v)
	}
	var oow regs.ErrOutOfWindow
	if _, err := e.ReadMemory(counter.CounterBaseSize); !errors.As(err, &oow) {
		t.Errorf("expected ErrOutOfWindow, got %v", err)
	}
	if err := e.SetDebugMode(true); err != nil {
		t.Fatal(err)
	}
	if on, _ := e.GetDebugMode(); !on {
		t.Error("debug mode off")
	}
}

func TestWaitForStateTimeout(t *testing.T) {
	e, _ := newMemoryEngine(t, counter.WithWaitTimeout(5*time.Millisecond),
		counter.WithPollInterval(time.Millisecond))
	err := e.WaitForState(context.Background(), counter.StateGatedCountingStore)
	var timeout counter.ErrTimeout
	if !errors.As(err, &timeout) || timeout.State != counter.StateGatedCountingStore {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if err := e.WaitForState(context.Background(), counter.StateIdle); err != nil {
		t.Fatalf("idle: %v", err)
	}
}

func TestWaitForStateCancel(t *testing.T) {
	for _, interval := range []time.Duration{0, time.Millisecond} {
		e, _ := newMemoryEngine(t, counter.WithPollInterval(interval))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- e.WaitForState(ctx, counter.StateTriggeredCountingStore)
		}()
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("wait did not return after cancel")
		}
	}
}

func TestCountWithSimulator(t *testing.T) {
	e, _ := newSimEngine(t, counter.Counts{1000, 2000})
	if err := e.SetCountingTime(0.01); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := e.Count(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 3 {
		t.Fatalf("got %d counts", len(result))
	}
	for i, c := range result {
		if !almostEqual(c[0], 1000) || !almostEqual(c[1], 2000) {
			t.Errorf("count %d: %v", i, c)
		}
	}

	single, err := e.CountSingle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(single[0], 1000) || !almostEqual(single[1], 2000) {
		t.Errorf("single: %v", single)
	}

	stale, err := e.WaitAndReadAndStartCounting(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(stale[0], 1000) {
		t.Errorf("stale: %v", stale)
	}
	if s, _ := e.GetState(); s.Family() != counter.FamilyImmediate {
		t.Errorf("counting not restarted, state %s", s)
	}
}

func TestTriggeredCountingWithSimulator(t *testing.T) {
	e, s := newSimEngine(t, counter.Counts{1000, 3000})
	ctx := context.Background()
	for _, step := range []error{
		e.SetCountingTime(0.001),
		e.SetNumberOfBins(4),
		e.SetRepetitions(2),
		e.SetPredelay(0.002),
		e.ResetBinData(),
		e.SetTriggeredCounting(true),
	} {
		if step != nil {
			t.Fatal(step)
		}
	}
	if on, _ := e.GetTriggeredCounting(); !on {
		t.Fatalf("not triggered, state %s", s.State())
	}
	for rep := 0; rep < 2; rep++ {
		if err := e.WaitForState(ctx, counter.StateTriggeredCountingWaitForTrigger); err != nil {
			t.Fatal(err)
		}
		if err := e.Trigger(); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.WaitForState(ctx, counter.StateIdle); err != nil {
		t.Fatal(err)
	}
	if n, _ := e.GetRepetitionCounter(); n != 2 {
		t.Errorf("repetition counter %d", n)
	}
	data, err := e.GetBinData(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if !almostEqual(data[0][i], 1000) || !almostEqual(data[1][i], 3000) {
			t.Errorf("bin %d: %g,%g", i, data[0][i], data[1][i])
		}
	}
}

func TestSetCountingModes(t *testing.T) {
	e, s := newSimEngine(t, counter.Counts{})
	if err := e.SetGatedCounting(true); err != nil {
		t.Fatal(err)
	}
	if s.State() != counter.StateGatedCountingWaitForGateRise {
		t.Fatalf("state %s", s.State())
	}
	if gated, _ := e.GetGatedCounting(); !gated {
		t.Fatal("gated counting not reported")
	}
	if err := e.SetGatedCounting(false); err != nil {
		t.Fatal(err)
	}
	if s.State() != counter.StateIdle {
		t.Fatalf("state %s after disabling", s.State())
	}
}

func TestRunGuardOption(t *testing.T) {
	e, _ := newMemoryEngine(t)
	if !e.Guarded() {
		t.Fatal("engine not guarded by default")
	}
	e, _ = newMemoryEngine(t, counter.WithoutRunGuard())
	if e.Guarded() {
		t.Fatal("run guard not disabled")
	}
}

func TestParseState(t *testing.T) {
	for i, name := range counter.StateNames {
		s, err := counter.ParseState(name)
		if err != nil || s != counter.State(i) {
			t.Errorf("%s: got %d, %v", name, s, err)
		}
	}
	if _, err := counter.ParseState("running"); err == nil {
		t.Error("unknown state parsed")
	}
}
