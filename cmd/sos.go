/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/Daskott/enablex/server/alert"
	"github.com/spf13/cobra"
)

var fallArg bool

func init() {
	rootCmd.AddCommand(createSOSCmd())
}

func createSOSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sos",
		Short: "Send an SOS alert to the caregivers",
		Long: `Asks a running enablex daemon to alert the caregivers right away.
With --fall a fall is reported instead, starting the countdown the user can
still cancel from the device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(addrArg)

			if fallArg {
				status := alert.Status{}
				if err := client.do("POST", "/alert/fall", nil, &status); err != nil {
					return err
				}

				cmd.Printf("fall reported, alerting caregivers in %vs unless cancelled\n", status.Remaining)
				return nil
			}

			result := alert.Result{}
			if err := client.do("POST", "/alert/sos", nil, &result); err != nil {
				return err
			}

			cmd.Printf("SOS alert sent to %v contact(s)\n", result.Attempted)
			if result.Failed > 0 {
				cmd.Printf("%s %v contact(s) could not be reached\n", warningLabel, result.Failed)
			}
			if result.Location == nil {
				cmd.Printf("%s location unavailable, alert sent without it\n", warningLabel)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addrArg, "addr", DEFAULT_ADDR, "address of the enablex daemon")
	cmd.Flags().BoolVar(&fallArg, "fall", false, "report a fall instead of sending an alert right away")

	return cmd
}
