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
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/enablex/dev/config"
	"github.com/Daskott/enablex/server"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/Daskott/enablex/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "ENABLEX"

var serverCongFile string

func init() {
	rootCmd.AddCommand(createServerCmd())
}

func createServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the enablex daemon",
		Long: `The enablex daemon serves the device UI on the loopback interface.
It runs the fall countdown & SOS alerts, medication reminders and the
speech, hearing & reader features.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig(serverCongFile, isDevEnv)
			if err != nil {
				return err
			}

			server.Start(config, isDevEnv)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverCongFile, "sconfig", "", "config for server (default is dev/config/server.yml in dev mode)")

	return cmd
}

// serverConfig reads, unmarshals & validates the server config. Any key
// can be overridden with an env var e.g. ENABLEX_SQLITE_PASSPHRASE
func serverConfig(configFile string, devMode bool) (shared.ServerConfig, error) {
	config := viper.New()
	serverConfig := shared.ServerConfig{}

	if configFile == "" {
		if !devMode {
			return serverConfig, formattedError("'--sconfig' is required, unless in dev mode")
		}

		var err error
		configFile, err = devConfigFilePath()
		if err != nil {
			return serverConfig, err
		}
	}

	config.SetConfigFile(configFile)
	config.SetEnvPrefix(ENV_PREFIX)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return serverConfig, formattedError("error reading server config file: %v", err)
	}

	if err := config.Unmarshal(&serverConfig); err != nil {
		return serverConfig, formattedError("invalid server config: %v", err)
	}

	if err := models.NewValidator().Struct(serverConfig); err != nil {
		return serverConfig, formattedError("invalid server config in %s:\n%v", config.ConfigFileUsed(), err)
	}

	return serverConfig, nil
}

// devConfigFilePath returns dev/config/server.yml, creating it from the
// default dev config if it doesn't exist yet
func devConfigFilePath() (string, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configFilePath := filepath.Join(rootDir, "dev", "config", "server.yml")
	if err := utils.EnsureFile(configFilePath, []byte(devConfig.SERVER_YML)); err != nil {
		return "", fmt.Errorf("devConfigFilePath: %v", err)
	}

	return configFilePath, nil
}
