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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/config"
	"github.com/Shoaibashk/wsss/internal/serial"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan and list available serial ports",
	Long: `Scan the local machine for available serial ports and display their
information. Unlike open/close/write/read this command talks directly to
the OS enumerator and does not require a running wsss server.

This command discovers all serial ports including:
  • USB serial devices
  • Native serial ports
  • Bluetooth serial ports
  • Virtual serial ports

Example:
  wsss scan              # list all ports
  wsss scan --json       # output as JSON
  wsss scan -v           # show detailed port information`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("json", false, "output in JSON format")
	scanCmd.Flags().BoolP("verbose", "v", false, "show detailed port information")
}

func runScan(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	scanner := serial.NewScanner(cfg.Serial.ExcludePatterns, nil)
	ports, err := scanner.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan ports: %w", err)
	}

	if len(ports) == 0 {
		if jsonOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No serial ports found.")
		}
		return nil
	}

	if jsonOutput {
		return printPortsJSON(ports, verbose)
	}

	return printPortsTable(ports, verbose)
}

func printPortsTable(ports []serial.PortInfo, verbose bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if verbose {
		fmt.Fprintln(w, "PORT\tDESCRIPTION\tHARDWARE ID\tMANUFACTURER\tPRODUCT\tSERIAL\tTYPE\tSTATUS")
		fmt.Fprintln(w, "----\t-----------\t-----------\t------------\t-------\t------\t----\t------")
		for _, port := range ports {
			status := "available"
			if port.IsOpen {
				status = "open"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				port.Name,
				truncate(port.Description, 20),
				truncate(port.HardwareID, 15),
				truncate(port.Manufacturer, 12),
				truncate(port.Product, 15),
				truncate(port.SerialNumber, 15),
				port.PortType.String(),
				status,
			)
		}
	} else {
		fmt.Fprintln(w, "PORT\tDESCRIPTION\tTYPE")
		fmt.Fprintln(w, "----\t-----------\t----")
		for _, port := range ports {
			status := ""
			if port.IsOpen {
				status = " [OPEN]"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\n",
				port.Name,
				status,
				truncate(port.Description, 40),
				port.PortType.String(),
			)
		}
	}

	return w.Flush()
}

func printPortsJSON(ports []serial.PortInfo, verbose bool) error {
	type portData struct {
		Name         string `json:"name"`
		Description  string `json:"description,omitempty"`
		HardwareID   string `json:"hardware_id,omitempty"`
		Manufacturer string `json:"manufacturer,omitempty"`
		Product      string `json:"product,omitempty"`
		SerialNumber string `json:"serial_number,omitempty"`
		PortType     string `json:"port_type"`
		IsOpen       bool   `json:"is_open"`
	}

	data := make([]portData, 0, len(ports))
	for _, port := range ports {
		entry := portData{
			Name:     port.Name,
			PortType: port.PortType.String(),
			IsOpen:   port.IsOpen,
		}
		if verbose {
			entry.Description = port.Description
			entry.HardwareID = port.HardwareID
			entry.Manufacturer = port.Manufacturer
			entry.Product = port.Product
			entry.SerialNumber = port.SerialNumber
		}
		data = append(data, entry)
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
