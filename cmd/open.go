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
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/internal/wsclient"
)

var openCmd = &cobra.Command{
	Use:   "open PORT",
	Short: "Open a serial port through a running wsss server",
	Long: `Open a serial port by dialing a running wsss server over
websocket-serial-json and sending an Open request.

Example:
  wsss open /dev/ttyUSB0                     # open against ws://127.0.0.1:10080/ws
  wsss --server ws://host:9000/ws open COM1  # open against a remote server`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	portName := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := wsclient.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Send(ctx, wsclient.OpenRequest(portName)); err != nil {
		return fmt.Errorf("failed to send open request: %w", err)
	}

	frame, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("failed to open %s: %s", portName, describeError(errBody))
	}

	if _, ok := frame["Opened"]; ok {
		fmt.Printf("Opened %s\n", portName)
		return nil
	}

	return fmt.Errorf("unexpected response to open request: %s", frame)
}

// describeError renders the body of an Error event for display.
func describeError(raw json.RawMessage) string {
	var body struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}
	if body.Detail != "" {
		return fmt.Sprintf("%s (%s)", body.Detail, body.Code)
	}
	return body.Code
}
