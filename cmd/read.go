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
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/internal/wsclient"
)

var readCmd = &cobra.Command{
	Use:   "read PORT",
	Short: "Open a serial port and print incoming data",
	Long: `Open a serial port and print every Read event the server broadcasts
for it until --timeout elapses. The websocket-serial-json protocol has no
synchronous read call: data only arrives as asynchronous Read events after
Open, so this command opens the port and listens rather than issuing a
single request/response pair.

Example:
  wsss read /dev/ttyUSB0                  # listen for 5 seconds
  wsss read /dev/ttyUSB0 --timeout 30s     # listen for 30 seconds
  wsss read /dev/ttyUSB0 --format hex`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().Duration("timeout", 5*time.Second, "how long to listen for Read events")
	readCmd.Flags().String("format", "text", "output format (text, hex)")
}

func runRead(cmd *cobra.Command, args []string) error {
	portName := args[0]
	timeout, _ := cmd.Flags().GetDuration("timeout")
	format, _ := cmd.Flags().GetString("format")

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDial()

	c, err := wsclient.Dial(dialCtx, serverURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Send(dialCtx, wsclient.OpenRequest(portName)); err != nil {
		return fmt.Errorf("failed to send open request: %w", err)
	}
	frame, err := c.Next(dialCtx)
	if err != nil {
		return fmt.Errorf("failed to read open response: %w", err)
	}
	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("failed to open %s: %s", portName, describeError(errBody))
	}

	listenCtx, cancelListen := context.WithTimeout(context.Background(), timeout)
	defer cancelListen()

	total := 0
	for {
		frame, err := c.Next(listenCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		readBody, ok := frame["Read"]
		if !ok {
			continue
		}
		var body struct {
			Port string `json:"port"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal(readBody, &body); err != nil {
			return fmt.Errorf("failed to decode read event: %w", err)
		}
		raw, err := base64.StdEncoding.DecodeString(body.Data)
		if err != nil {
			return fmt.Errorf("failed to decode base64 payload: %w", err)
		}
		total += len(raw)
		printData(raw, format)
	}

	if total == 0 {
		fmt.Println("No data received")
	}
	return nil
}

func printData(data []byte, format string) {
	switch format {
	case "hex":
		fmt.Println(hex.EncodeToString(data))
	default:
		fmt.Print(string(data))
	}
}
