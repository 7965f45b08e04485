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

package command

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/handlers"
	"jinr.ru/greenlab/go-counter/pkg/log"
	"jinr.ru/greenlab/go-counter/pkg/pins"
	"jinr.ru/greenlab/go-counter/pkg/regs"
	"jinr.ru/greenlab/go-counter/pkg/sim"
	srvcounter "jinr.ru/greenlab/go-counter/pkg/srv/counter"
)

// NewEngine builds an unopened engine either over /dev/mem or over the simulator
func NewEngine(cfg *config.DeviceConfig) *counter.Engine {
	var opener regs.Opener
	if cfg.Simulate {
		log.Info("Using simulated counter")
		opener = sim.New().Opener()
	} else {
		opener = regs.MapOpener(cfg.MemPath, counter.CounterBaseAddr, counter.CounterBaseSize)
	}
	opts := []counter.Option{
		counter.WithPollInterval(time.Duration(cfg.PollInterval)),
		counter.WithWaitTimeout(time.Duration(cfg.WaitTimeout)),
	}
	if cfg.Unsynchronized {
		opts = append(opts, counter.WithoutRunGuard())
	}
	return counter.NewEngine(regs.NewBlock("counter", opener), opts...)
}

// NewPins returns the pin backend and a function releasing it
func NewPins(cfg *config.DeviceConfig) (pins.IO, func() error, error) {
	if cfg.Simulate || cfg.Pins == config.PinsMemory {
		return pins.NewMemory(), func() error { return nil }, nil
	}
	board := pins.NewBoardMapping(cfg.MemPath)
	if err := board.Open(); err != nil {
		return nil, nil, err
	}
	return board, board.Close, nil
}

// StartCounterServer maps the device and serves the protocol and, when
// enabled, the API until ctx is done or one of the servers fails
func StartCounterServer(ctx context.Context, cfg *config.Config) error {
	engine := NewEngine(cfg.DeviceConfig)
	if err := engine.Open(); err != nil {
		log.Error("Error while mapping counter registers: %s", err)
		return err
	}
	defer engine.Close()

	io, closePins, err := NewPins(cfg.DeviceConfig)
	if err != nil {
		log.Error("Error while mapping pin registers: %s", err)
		return err
	}
	defer closePins()

	return ServeCounter(ctx, cfg, engine, io)
}

// ResetHardware brings the counter FSM to idle and clears the pin outputs
func ResetHardware(ctx context.Context, engine *counter.Engine, io pins.IO) error {
	if err := engine.Reset(ctx); err != nil {
		return fmt.Errorf("Error while resetting counter: %w", err)
	}
	if err := io.AnalogReset(); err != nil {
		return fmt.Errorf("Error while resetting analog pins: %w", err)
	}
	if err := io.DigitalReset(); err != nil {
		return fmt.Errorf("Error while resetting digital pins: %w", err)
	}
	return nil
}

// ServeCounter resets the opened hardware once and serves it
func ServeCounter(ctx context.Context, cfg *config.Config, engine *counter.Engine, io pins.IO) error {
	if err := ResetHardware(ctx, engine, io); err != nil {
		log.Error("%s", err)
		return err
	}

	var err error
	opts := handlers.Options{MaxCounts: cfg.DeviceConfig.MaxCounts}
	var history *srvcounter.History
	if cfg.HistoryConfig.Enabled {
		history, err = srvcounter.OpenHistory(cfg.HistoryConfig)
		if err != nil {
			log.Error("Error while opening history: %s", err)
			return err
		}
		defer history.Close()
		opts.Recorder = history
	}
	table := handlers.New(engine, io, opts)

	server := srvcounter.NewServer(cfg.ServerConfig, table)
	var api *srvcounter.ApiServer
	if cfg.ApiConfig.Enabled {
		apiOpts := []srvcounter.ApiOption{srvcounter.WithConnections(server.Connections)}
		if history != nil {
			apiOpts = append(apiOpts, srvcounter.WithHistory(history))
		}
		api, err = srvcounter.NewApiServer(cfg.ApiConfig, engine, table, apiOpts...)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if api != nil {
		g.Go(func() error {
			return api.Run(ctx)
		})
	}
	return g.Wait()
}
