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

package reg

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-counter/pkg/command"
	"jinr.ru/greenlab/go-counter/pkg/config"
	"jinr.ru/greenlab/go-counter/pkg/counter"
)

const (
	AddrOptionName = "addr"
	AllOptionName  = "all"
)

// NewCommand groups register commands
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Access counter registers",
	}
	cmd.AddCommand(NewReadCommand(cfg))
	return cmd
}

func NewReadCommand(cfg *config.Config) *cobra.Command {
	var addr string
	var all bool
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read value from register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if !all {
				if addr == "" {
					return fmt.Errorf("Either --%s or --%s is required", AddrOptionName, AllOptionName)
				}
				value, err := apiClient.RegRead(addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: %s = %s\n", addr, value)
				return nil
			}
			for alias := counter.RegAlias(0); alias < counter.RegAliasLimit; alias++ {
				addr := fmt.Sprintf("0x%x", counter.RegMap[alias])
				value, err := apiClient.RegRead(addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: %-20s %s = %s\n", counter.RegNames[alias], addr, value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register offset in the counter window (hexadecimal)")
	cmd.Flags().BoolVar(&all, AllOptionName, false, "Read every named counter register")

	return cmd
}
