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
	"errors"
	"fmt"
	"strconv"

	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/dispatch"
)

var binsOutOfRange = counter.ErrRange{What: fmt.Sprintf("Number of bins out of range: must be 1-%d", counter.MaxBins)}

func okResult(err error) (string, error) {
	if err != nil {
		return "", err
	}
	return OK, nil
}

func uintResult(v uint32, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return formatUint(v), nil
}

func floatResult(v float64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return formatFloat(v), nil
}

func flagResult(v bool, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return formatFlag(v), nil
}

func flagArg(args []string, missing string) (bool, error) {
	s, err := arg(args, 0, missing)
	if err != nil {
		return false, err
	}
	return parseFlag(s, "flag")
}

func (h *handlers) getState(ctx context.Context, args []string) (string, error) {
	s, err := h.engine.GetState()
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

func (h *handlers) waitForState(ctx context.Context, args []string) (string, error) {
	name, err := arg(args, 0, "Specify the state to wait for")
	if err != nil {
		return "", err
	}
	state, err := counter.ParseState(name)
	if err != nil {
		return "", err
	}
	return okResult(h.engine.WaitForState(ctx, state))
}

func (h *handlers) reset(ctx context.Context, args []string) (string, error) {
	return okResult(h.engine.Reset(ctx))
}

func (h *handlers) getNumCounters(ctx context.Context, args []string) (string, error) {
	return strconv.Itoa(counter.NumChannels), nil
}

func (h *handlers) getDNA(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetDNA())
}

func (h *handlers) getClock(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetClock())
}

func (h *handlers) setRepetitions(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify number of repetitions")
	if err != nil {
		return "", err
	}
	n, err := parseUint(s, "number of repetitions")
	if err != nil {
		return "", err
	}
	if n < 1 {
		return "", counter.ErrRange{What: "Number of repetitions must be >= 1"}
	}
	return okResult(h.engine.SetRepetitions(n))
}

func (h *handlers) getRepetitions(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetRepetitions())
}

func (h *handlers) getRepetitionCounter(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetRepetitionCounter())
}

func (h *handlers) setPredelay(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify the predelay")
	if err != nil {
		return "", err
	}
	d, err := parseFloat(s, "predelay")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetPredelay(d))
}

func (h *handlers) getPredelay(ctx context.Context, args []string) (string, error) {
	return floatResult(h.engine.GetPredelay())
}

func (h *handlers) setGatedCounting(ctx context.Context, args []string) (string, error) {
	enabled, err := flagArg(args, "Specify whether to use gating (0 or 1)")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetGatedCounting(enabled))
}

func (h *handlers) getGatedCounting(ctx context.Context, args []string) (string, error) {
	return flagResult(h.engine.GetGatedCounting())
}

func (h *handlers) setNumberOfBins(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify the number of bins")
	if err != nil {
		return "", err
	}
	n, err := parseUint(s, "number of bins")
	if err != nil {
		return "", err
	}
	if n < 1 || n > counter.MaxBins {
		return "", binsOutOfRange
	}
	return okResult(h.engine.SetNumberOfBins(n))
}

func (h *handlers) getNumberOfBins(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetNumberOfBins())
}

func (h *handlers) getBinAddress(ctx context.Context, args []string) (string, error) {
	return uintResult(h.engine.GetBinAddress())
}

func (h *handlers) getMaxBins(ctx context.Context, args []string) (string, error) {
	return strconv.Itoa(counter.MaxBins), nil
}

func (h *handlers) getBinData(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify how many bins to read out.")
	if err != nil {
		return "", err
	}
	n, err := parseUint(s, "number of bins")
	if err != nil {
		return "", err
	}
	if n < 1 || n > counter.MaxBins {
		return "", binsOutOfRange
	}
	data, err := h.engine.GetBinData(n)
	if err != nil {
		return "", err
	}
	return joinChannels(data), nil
}

func (h *handlers) resetBinDataPartially(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify how many bins to reset.")
	if err != nil {
		return "", err
	}
	n, err := parseUint(s, "number of bins")
	if err != nil {
		return "", err
	}
	if n > counter.MaxBins {
		return "", binsOutOfRange
	}
	return okResult(h.engine.ResetBinDataPartially(n))
}

func (h *handlers) resetBinData(ctx context.Context, args []string) (string, error) {
	return okResult(h.engine.ResetBinData())
}

func (h *handlers) setBinsSplitted(ctx context.Context, args []string) (string, error) {
	splitted, err := flagArg(args, "Specify whether to split bins (1 or 0)")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetBinsSplitted(splitted))
}

func (h *handlers) getBinsSplitted(ctx context.Context, args []string) (string, error) {
	return flagResult(h.engine.GetBinsSplitted())
}

func (h *handlers) setTriggerConfig(ctx context.Context, args []string) (string, error) {
	if len(args) < 3 {
		return "", dispatch.ErrMissingArgument{What: "Specify trigger config 'trigMask,trigInvert,trigPolarity'"}
	}
	mask, err := parseUint(args[0], "trigger mask")
	if err != nil {
		return "", err
	}
	invert, err := parseUint(args[1], "trigger invert mask")
	if err != nil {
		return "", err
	}
	polarity, err := parseFlag(args[2], "trigger polarity")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetTriggerConfig(counter.TriggerConfig{
		Mask:       mask,
		InvertMask: invert,
		Polarity:   polarity,
	}))
}

func (h *handlers) getTriggerConfig(ctx context.Context, args []string) (string, error) {
	tc, err := h.engine.GetTriggerConfig()
	if err != nil {
		return "", err
	}
	return tc.String(), nil
}

func (h *handlers) setTriggeredCounting(ctx context.Context, args []string) (string, error) {
	enabled, err := flagArg(args, "Specify whether to use triggered counting (0 or 1)")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetTriggeredCounting(enabled))
}

func (h *handlers) getTriggeredCounting(ctx context.Context, args []string) (string, error) {
	return flagResult(h.engine.GetTriggeredCounting())
}

func (h *handlers) trigger(ctx context.Context, args []string) (string, error) {
	return okResult(h.engine.Trigger())
}

func (h *handlers) getCountingTime(ctx context.Context, args []string) (string, error) {
	return floatResult(h.engine.GetCountingTime())
}

func (h *handlers) setCountingTime(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify the counting duration.")
	if err != nil {
		return "", err
	}
	t, err := parseFloat(s, "counting duration")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetCountingTime(t))
}

func (h *handlers) count(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify how often to count.")
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return "", dispatch.ErrInvalidArgument{Value: s, What: "number of counts"}
	}
	if n > h.opts.MaxCounts {
		return "", dispatch.ErrAllocation
	}
	counts, err := h.engine.Count(ctx, n)
	if err != nil {
		return "", err
	}
	h.record("COUNTER:COUNT?", counts)
	return joinChannels(transpose(counts)), nil
}

func (h *handlers) countSingle(ctx context.Context, args []string) (string, error) {
	c, err := h.engine.CountSingle(ctx)
	if err != nil {
		return "", err
	}
	h.record("COUNTER:COUNT:SING?", []counter.Counts{c})
	return joinFloats(c[:]), nil
}

func (h *handlers) waitReadStart(ctx context.Context, args []string) (string, error) {
	c, err := h.engine.WaitAndReadAndStartCounting(ctx)
	if err != nil {
		return "", err
	}
	h.record("COUNTER:WRSC?", []counter.Counts{c})
	return joinFloats(c[:]), nil
}

var errDeprecated = errors.New("This command is deprecated!")

func (h *handlers) deprecated(ctx context.Context, args []string) (string, error) {
	return "", errDeprecated
}

func (h *handlers) readMemory(ctx context.Context, args []string) (string, error) {
	s, err := arg(args, 0, "Specify memory address.")
	if err != nil {
		return "", err
	}
	addr, err := parseUintBase(s, 0, "memory address")
	if err != nil {
		return "", err
	}
	return uintResult(h.engine.ReadMemory(addr))
}

func (h *handlers) setDebugMode(ctx context.Context, args []string) (string, error) {
	enabled, err := flagArg(args, "Specify whether to enable debug mode (0 or 1)")
	if err != nil {
		return "", err
	}
	return okResult(h.engine.SetDebugMode(enabled))
}

func (h *handlers) getDebugMode(ctx context.Context, args []string) (string, error) {
	return flagResult(h.engine.GetDebugMode())
}
