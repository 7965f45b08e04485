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
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"jinr.ru/greenlab/go-counter/pkg/command"
	"jinr.ru/greenlab/go-counter/pkg/config"
)

const (
	LimitOptionName = "limit"
)

func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded counting runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			records, err := apiClient.History(limit)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(records)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, LimitOptionName, 10, "Maximum number of runs to show. 0 shows all")

	return cmd
}
