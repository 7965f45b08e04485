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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-counter/cmd/completion"
	"jinr.ru/greenlab/go-counter/cmd/config"
	"jinr.ru/greenlab/go-counter/cmd/control"
	"jinr.ru/greenlab/go-counter/cmd/control/reg"
	pkgconfig "jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	loadErr := cfg.Load()
	cmd := &cobra.Command{
		Use:          "go-counter",
		Short:        "Tool to work with the Red Pitaya photon counter",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := log.Init(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
				return err
			}
			if loadErr != nil {
				log.Error("Error while loading config %s: %s", cfg.Path(), loadErr)
				return loadErr
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(control.NewStartCommand(cfg))
	cmd.AddCommand(control.NewSendCommand(cfg))
	cmd.AddCommand(control.NewStatusCommand(cfg))
	cmd.AddCommand(control.NewHistoryCommand(cfg))
	cmd.AddCommand(reg.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
