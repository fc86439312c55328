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

package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/config"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show build and effective configuration information",
	Long: `Show the wsss binary's build information and the configuration it
would use if started now (config file, environment, and flags merged per
the discovery order documented in config.InitViper).

Unlike open/close/write/read, info reads local state only; it never dials
a running server.

Example:
  wsss info                # display build and config information
  wsss info --json         # output as JSON`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("json", false, "output in JSON format")
}

type infoReport struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	GoVersion   string `json:"go_version"`
	HTTPPort    int    `json:"http_port"`
	BindAddress string `json:"bind_address"`
	LogLevel    string `json:"log_level"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	report := infoReport{
		Version:     Version,
		Commit:      Commit,
		BuildDate:   BuildDate,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		HTTPPort:    cfg.HTTPPort,
		BindAddress: cfg.BindAddress,
		LogLevel:    cfg.Logging.Level,
	}

	if jsonOutput {
		return printInfoJSON(report, cfg)
	}
	return printInfoTable(report, cfg)
}

func printInfoTable(report infoReport, cfg *config.Config) error {
	fmt.Println("wsss build information:")
	fmt.Printf("  Version:        %s\n", report.Version)
	fmt.Printf("  Build Commit:   %s\n", report.Commit)
	fmt.Printf("  Build Date:     %s\n", report.BuildDate)
	fmt.Printf("  Go Version:     %s\n", report.GoVersion)
	fmt.Printf("  OS/Arch:        %s/%s\n", report.OS, report.Arch)

	fmt.Println("\nEffective configuration:")
	fmt.Printf("  HTTP Port:      %d\n", cfg.HTTPPort)
	fmt.Printf("  Bind Address:   %s\n", cfg.BindAddress)
	fmt.Printf("  Log Level:      %s\n", cfg.Logging.Level)
	fmt.Printf("  Serial Baud:    %d\n", cfg.Serial.Defaults.BaudRate)
	fmt.Printf("  Serial Parity:  %s\n", cfg.Serial.Defaults.Parity)
	if len(cfg.Serial.ExcludePatterns) > 0 {
		fmt.Printf("  Excluded Ports: %v\n", cfg.Serial.ExcludePatterns)
	}

	return nil
}

func printInfoJSON(report infoReport, cfg *config.Config) error {
	out := struct {
		infoReport
		Config *config.Config `json:"config"`
	}{infoReport: report, Config: cfg}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
