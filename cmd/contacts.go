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
	"github.com/Daskott/enablex/server/models"
	"github.com/spf13/cobra"
)

var (
	addrArg     string
	nameArg     string
	phoneArg    string
	categoryArg string
)

func init() {
	rootCmd.AddCommand(createContactsCmd())
}

func createContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the caregivers alerted in an emergency",
		Long: `Lists, adds & removes the caregivers kept by a running enablex daemon.
Family contacts are alerted first, doctors only when no family contact exists.`,
	}

	cmd.PersistentFlags().StringVar(&addrArg, "addr", DEFAULT_ADDR, "address of the enablex daemon")

	cmd.AddCommand(createListContactsCmd(), createAddContactCmd(), createRemoveContactCmd())
	return cmd
}

func createListContactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List caregivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts := []models.Contact{}
			err := newAPIClient(addrArg).do("GET", "/contacts", nil, &contacts)
			if err != nil {
				return err
			}

			if len(contacts) == 0 {
				cmd.Printf("%s no caregivers added yet. Try 'enablex contacts add'\n", warningLabel)
				return nil
			}

			for _, contact := range contacts {
				cmd.Printf("%s\t%s\t%s\t%s\n", contact.ID, contact.Name, contact.Phone, contact.Category)
			}
			return nil
		},
	}
}

func createAddContactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a caregiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			contact := models.Contact{}
			err := newAPIClient(addrArg).do("POST", "/contacts", models.Contact{
				Name:     nameArg,
				Phone:    phoneArg,
				Category: categoryArg,
			}, &contact)
			if err != nil {
				return err
			}

			cmd.Printf("%s has been added as a %s contact\n", contact.Name, contact.Category)
			return nil
		},
	}

	cmd.Flags().StringVarP(&nameArg, "name", "n", "", "caregiver's name")
	cmd.Flags().StringVarP(&phoneArg, "phone", "p", "", "caregiver's phone number")
	cmd.Flags().StringVarP(&categoryArg, "type", "t", models.FAMILY_CONTACT, "family or doctor")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("phone")

	return cmd
}

func createRemoveContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a caregiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := newAPIClient(addrArg).do("DELETE", "/contacts/"+args[0], nil, nil)
			if err != nil {
				return err
			}

			cmd.Printf("contact %s has been removed\n", args[0])
			return nil
		},
	}
}
