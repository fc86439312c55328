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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/internal/wsclient"
)

var closeCmd = &cobra.Command{
	Use:   "close [PORT]",
	Short: "Close a serial port",
	Long: `Close a serial port this connection has open. Omit PORT to close
every port this connection currently holds.

Example:
  wsss close /dev/ttyUSB0        # close one port
  wsss close                     # close every port this connection holds`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	var portName string
	if len(args) == 1 {
		portName = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := wsclient.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Send(ctx, wsclient.CloseRequest(portName)); err != nil {
		return fmt.Errorf("failed to send close request: %w", err)
	}

	frame, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("failed to close: %s", describeError(errBody))
	}

	if _, ok := frame["Closed"]; ok {
		if portName != "" {
			fmt.Printf("Closed %s\n", portName)
		} else {
			fmt.Println("Closed all held ports")
		}
		return nil
	}

	return fmt.Errorf("unexpected response to close request: %s", frame)
}
