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

package control

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-counter/pkg/command"
	"jinr.ru/greenlab/go-counter/pkg/config"
)

const (
	AddressOptionName  = "address"
	PortOptionName     = "port"
	ApiPortOptionName  = "api-port"
	NoApiOptionName    = "no-api"
	SimulateOptionName = "simulate"
	MemPathOptionName  = "mem-path"
)

func NewStartCommand(cfg *config.Config) *cobra.Command {
	var address, memPath string
	var port, apiPort int
	var noApi, simulate bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start counter server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.ServerConfig.Address = address
			}
			if port != 0 {
				cfg.ServerConfig.Port = port
			}
			if apiPort != 0 {
				cfg.ApiConfig.Port = apiPort
			}
			if noApi {
				cfg.ApiConfig.Enabled = false
			}
			if simulate {
				cfg.DeviceConfig.Simulate = true
			}
			if memPath != "" {
				cfg.DeviceConfig.MemPath = memPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartCounterServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", "Address to bind. E.g. "+config.DefaultServerAddress)
	cmd.Flags().IntVar(&port, PortOptionName, 0, "Port to listen on")
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, 0, "API port to listen on")
	cmd.Flags().BoolVar(&noApi, NoApiOptionName, false, "Do not start the API server")
	cmd.Flags().BoolVar(&simulate, SimulateOptionName, false, "Use the simulated counter instead of /dev/mem")
	cmd.Flags().StringVar(&memPath, MemPathOptionName, "", "Physical memory device. E.g. "+config.DefaultMemPath)

	return cmd
}
