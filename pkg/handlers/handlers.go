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

package handlers

import (
	"context"
	"strings"
	"time"

	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/dispatch"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/pins"
)

const DefaultMaxCounts = 100000

// Run describes a finished immediate counting run
type Run struct {
	Time         time.Time        `json:"time"`
	Command      string           `json:"command"`
	CountingTime float64          `json:"counting_time"`
	Counts       []counter.Counts `json:"counts"`
}

// Recorder keeps finished runs
type Recorder interface {
	Record(run Run) error
}

// Options ...
type Options struct {
	// MaxCounts bounds n of COUNTER:COUNT?
	MaxCounts int
	Recorder  Recorder
}

type handlers struct {
	engine *counter.Engine
	io     pins.IO
	opts   Options
	table  *dispatch.Table
}

// New builds the command table over the engine and the pins
func New(engine *counter.Engine, io pins.IO, opts Options) *dispatch.Table {
	if opts.MaxCounts <= 0 {
		opts.MaxCounts = DefaultMaxCounts
	}
	h := &handlers{
		engine: engine,
		io:     io,
		opts:   opts,
	}
	entries := []dispatch.Entry{
		{Name: "ANALOG:RST", Handler: h.analogReset,
			Help: "Reset all analog outputs to 0 V"},
		{Name: "ANALOG:PIN?", Handler: h.analogGet,
			Help: "ANALOG:PIN? <AOUT0-3|AIN0-3> returns the pin voltage"},
		{Name: "ANALOG:PIN", Handler: h.analogSet,
			Help: "ANALOG:PIN <AOUT0-3>,<volts> sets an analog output"},
		{Name: "DIG:RST", Handler: h.digitalReset,
			Help: "Reset all digital pins to inputs and LEDs off"},
		{Name: "DIG:PIN?", Handler: h.digitalGet,
			Help: "DIG:PIN? <pin> returns the pin state"},
		{Name: "DIG:PIN", Handler: h.digitalSet,
			Help: "DIG:PIN <pin>,<0|1> sets the pin state"},
		{Name: "DIG:PIN:DIR?", Handler: h.directionGet,
			Help: "DIG:PIN:DIR? <pin> returns IN or OUT"},
		{Name: "DIG:PIN:DIR", Handler: h.directionSet,
			Help: "DIG:PIN:DIR <pin>,<IN|OUT> sets the pin direction"},
		{Name: "COUNTER:STATE?", Handler: h.getState,
			Help: "Returns the counter state: " + strings.Join(counter.StateNames[:], ",")},
		{Name: "COUNTER:WAIT", Handler: h.waitForState,
			Help: "COUNTER:WAIT <state> blocks until the counter reaches the state"},
		{Name: "COUNTER:RESET", Handler: h.reset,
			Help: "Reset the counter and wait for idle"},
		{Name: "COUNTER:NO?", Handler: h.getNumCounters,
			Help: "Returns the number of channels"},
		{Name: "COUNTER:DNA?", Handler: h.getDNA,
			Help: "Returns the FPGA DNA"},
		{Name: "COUNTER:CLOCK?", Handler: h.getClock,
			Help: "Returns the FPGA clock register"},
		{Name: "COUNTER:REP", Handler: h.setRepetitions,
			Help: "COUNTER:REP <n> sets the number of repetitions of triggered counting"},
		{Name: "COUNTER:REP?", Handler: h.getRepetitions,
			Help: "Returns the number of repetitions"},
		{Name: "COUNTER:REP:COUNT?", Handler: h.getRepetitionCounter,
			Help: "Returns the current repetition"},
		{Name: "COUNTER:DELAY", Handler: h.setPredelay,
			Help: "COUNTER:DELAY <seconds> sets the delay between trigger and counting"},
		{Name: "COUNTER:DELAY?", Handler: h.getPredelay,
			Help: "Returns the predelay in seconds"},
		{Name: "COUNTER:GATED", Handler: h.setGatedCounting,
			Help: "COUNTER:GATED <0|1> starts or stops gated counting"},
		{Name: "COUNTER:GATED?", Handler: h.getGatedCounting,
			Help: "Returns 1 while gated counting"},
		{Name: "COUNTER:BINS:NO", Handler: h.setNumberOfBins,
			Help: "COUNTER:BINS:NO <n> sets the number of bins"},
		{Name: "COUNTER:BINS:NO?", Handler: h.getNumberOfBins,
			Help: "Returns the number of bins"},
		{Name: "COUNTER:BINS:ADDR?", Handler: h.getBinAddress,
			Help: "Returns the current bin address"},
		{Name: "COUNTER:BINS:MAX?", Handler: h.getMaxBins,
			Help: "Returns the maximum number of bins"},
		{Name: "COUNTER:BINS:DATA?", Handler: h.getBinData,
			Help: "COUNTER:BINS:DATA? <n> returns the rates of the first n bins, channel after channel"},
		{Name: "COUNTER:BINS:RESET", Handler: h.resetBinDataPartially,
			Help: "COUNTER:BINS:RESET <n> clears the first n bins"},
		{Name: "COUNTER:BINS:RESET:ALL", Handler: h.resetBinData,
			Help: "Clears all bins"},
		{Name: "COUNTER:BINS:SPLIT", Handler: h.setBinsSplitted,
			Help: "COUNTER:BINS:SPLIT <0|1> requires a trigger per bin"},
		{Name: "COUNTER:BINS:SPLIT?", Handler: h.getBinsSplitted,
			Help: "Returns 1 if bins are split"},
		{Name: "COUNTER:TRIG:CONF", Handler: h.setTriggerConfig,
			Help: "COUNTER:TRIG:CONF <mask>,<invert>,<polarity> configures the trigger inputs"},
		{Name: "COUNTER:TRIG:CONF?", Handler: h.getTriggerConfig,
			Help: "Returns mask,invert,polarity"},
		{Name: "COUNTER:TRIG", Handler: h.setTriggeredCounting,
			Help: "COUNTER:TRIG <0|1> starts or stops triggered counting"},
		{Name: "COUNTER:TRIG?", Handler: h.getTriggeredCounting,
			Help: "Returns 1 while triggered counting"},
		{Name: "COUNTER:TRIG:IMM", Handler: h.trigger,
			Help: "Fires a manual trigger"},
		{Name: "COUNTER:TIME?", Handler: h.getCountingTime,
			Help: "Returns the counting duration in seconds"},
		{Name: "COUNTER:TIME", Handler: h.setCountingTime,
			Help: "COUNTER:TIME <seconds> sets the counting duration"},
		{Name: "COUNTER:COUNT?", Handler: h.count,
			Help: "COUNTER:COUNT? <n> counts n times, channel after channel"},
		{Name: "COUNTER:COUNT:SING?", Handler: h.countSingle,
			Help: "Counts once and returns one rate per channel"},
		{Name: "COUNTER:COUNTS?", Handler: h.countSingle,
			Help: "Same as COUNTER:COUNT:SING?"},
		{Name: "COUNTER:WRSC?", Handler: h.waitReadStart,
			Help: "Waits for the running count, returns it and starts the next one"},
		{Name: "COUNTER:OUTPUT", Handler: h.deprecated,
			Help: "Deprecated"},
		{Name: "COUNTER:READMEM?", Handler: h.readMemory,
			Help: "COUNTER:READMEM? <offset> reads a raw word of the counter window"},
		{Name: "COUNTER:DEBUG", Handler: h.setDebugMode,
			Help: "COUNTER:DEBUG <0|1> switches the debug mode"},
		{Name: "COUNTER:DEBUG?", Handler: h.getDebugMode,
			Help: "Returns the debug mode"},
		{Name: "HELP?", Handler: h.help,
			Help: "HELP? [command] lists the commands or describes one"},
	}
	for i := range entries {
		entries[i].Handler = logged(entries[i].Name, entries[i].Handler)
	}
	h.table = dispatch.NewTable(entries...)
	return h.table
}

func logged(name string, handler dispatch.Handler) dispatch.Handler {
	return func(ctx context.Context, args []string) (string, error) {
		log.Debug("%s %v", name, args)
		text, err := handler(ctx, args)
		if err != nil {
			log.Error("%s failed: %s", name, err)
		}
		return text, err
	}
}

func (h *handlers) help(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		entry, ok := h.table.Lookup(args[0])
		if !ok {
			return "", dispatch.ErrUnknownCommand{Name: args[0]}
		}
		return entry.Help, nil
	}
	return strings.Join(h.table.Names(), ","), nil
}

func (h *handlers) record(command string, counts []counter.Counts) {
	if h.opts.Recorder == nil {
		return
	}
	run := Run{
		Time:    time.Now(),
		Command: command,
		Counts:  counts,
	}
	if t, err := h.engine.GetCountingTime(); err == nil {
		run.CountingTime = t
	}
	if err := h.opts.Recorder.Record(run); err != nil {
		log.Warning("Failed to record %s run: %s", command, err)
	}
}
