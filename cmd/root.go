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
	"fmt"
	"os"

	"github.com/Daskott/enablex/utils"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const VERSION = "0.1.0"

var (
	envFile  string
	isDevEnv bool

	yellow       = color.New(color.FgYellow).SprintFunc()
	red          = color.New(color.FgRed).SprintFunc()
	warningLabel = yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(loadEnv)

	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", VERSION)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "enablex",
		Short: `enablex is the companion daemon for the EnableX assistive app.

It keeps caregivers, medicines, tasks & the emergency log on the device,
runs the fall countdown & SOS alerts, and hands messages, calls & maps
off to the device's own apps.`,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env", ".env", "file with environment overrides e.g. ENABLEX_SQLITE_PASSPHRASE")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

// loadEnv reads env overrides from envFile when it exists, values already
// set in the environment win
func loadEnv() {
	if envFile == "" || !utils.FileExist(envFile) {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s unable to load %v: %v\n", warningLabel, envFile, err)
	}
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}
