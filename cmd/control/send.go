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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-counter/pkg/command"
	"jinr.ru/greenlab/go-counter/pkg/config"
)

const (
	TimeoutOptionName = "timeout"
)

// ErrResponse is returned when the server answers with an error line
var ErrResponse = errors.New("Server returned an error")

func NewSendCommand(cfg *config.Config) *cobra.Command {
	var address string
	var port int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "send COMMAND [ARGS...]",
		Short:   "Send a protocol command to the counter server",
		Example: "go-counter send COUNTER:TIME 0.1\ngo-counter send COUNTER:COUNT? 10",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg := *cfg.ServerConfig
			if address != "" {
				serverCfg.Address = address
			}
			if port != 0 {
				serverCfg.Port = port
			}
			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			client, err := command.Dial(ctx, &serverCfg)
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Line())
			if resp.Error {
				return ErrResponse
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", "Server address")
	cmd.Flags().IntVar(&port, PortOptionName, 0, "Server port")
	cmd.Flags().DurationVar(&timeout, TimeoutOptionName, 0, "Give up waiting for the response after this duration. 0 waits forever")

	return cmd
}
