/*
Copyright 2024 SerialLink Authors

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

// Package cmd provides the CLI commands for wsss using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shoaibashk/wsss/config"
)

var (
	// Version is the application version (set at build time)
	Version = "dev"

	// Commit is the git commit (set at build time)
	Commit = "none"

	// BuildDate is the build date (set at build time)
	BuildDate = "unknown"

	// cfgFile is an explicit config file path, overriding the discovery
	// order in config.InitViper.
	cfgFile string

	// serverURL is the websocket-serial-json endpoint the debug commands
	// (open/close/write/read) dial into.
	serverURL string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wsss",
	Short: "wsss - WebSocket serial port bridge server",
	Long: `wsss exposes local serial ports to browser-based clients over a
WebSocket transport carrying a JSON request/response protocol.

Example usage:
  wsss serve                      Start the server
  wsss scan                       List available serial ports
  wsss version                    Show version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext executes the root command with a context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (overrides WSS_CONF_FILE discovery)")
	rootCmd.PersistentFlags().IntP("http_port", "p", 10080, "HTTP/WebSocket listen port")
	rootCmd.PersistentFlags().StringP("bind_address", "a", "127.0.0.1", "HTTP/WebSocket bind address")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://127.0.0.1:10080/ws", "wsss server WebSocket endpoint (for debug commands)")

	_ = viper.BindPFlag("http_port", rootCmd.PersistentFlags().Lookup("http_port"))
	_ = viper.BindPFlag("bind_address", rootCmd.PersistentFlags().Lookup("bind_address"))
}

// initConfig reads the config file and environment variables, per
// config.InitViper's discovery order.
func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// GetConfig returns the fully merged configuration (file, env, flags).
func GetConfig() (*config.Config, error) {
	return config.Load()
}
