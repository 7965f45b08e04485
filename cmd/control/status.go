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
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-counter/pkg/command"
	"jinr.ru/greenlab/go-counter/pkg/config"
)

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show counter state, identity and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			state, err := apiClient.State()
			if err != nil {
				return err
			}
			info, err := apiClient.Info()
			if err != nil {
				return err
			}
			settings, err := apiClient.Settings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range [][2]interface{}{
				{"State", fmt.Sprintf("%s (%s)", state.State, state.Mode)},
				{"DNA", info.DNA},
				{"Clock", fmt.Sprintf("%d Hz", info.Clock)},
				{"Connections", info.Connections},
				{"Counting time", fmt.Sprintf("%g s", settings.CountingTime)},
				{"Bins", fmt.Sprintf("%d (splitted: %t)", settings.NumberOfBins, settings.BinsSplitted)},
				{"Repetitions", settings.Repetitions},
				{"Predelay", fmt.Sprintf("%g s", settings.Predelay)},
				{"Trigger", settings.Trigger},
				{"Gating", settings.Gating},
				{"Debug", settings.DebugMode},
			} {
				fmt.Fprintf(out, "%-14s %v\n", line[0].(string)+":", line[1])
			}
			return nil
		},
	}
	return cmd
}
