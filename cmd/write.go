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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/internal/wsclient"
)

var writeCmd = &cobra.Command{
	Use:   "write PORT DATA",
	Short: "Open, lock, and write data to a serial port",
	Long: `Open a serial port, take its write-lock, and write DATA to it, all
over one connection to a running wsss server.

Example:
  wsss write /dev/ttyUSB0 "Hello"          # write text
  wsss write /dev/ttyUSB0 --hex 48656C6C6F # write hex-decoded bytes`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)

	writeCmd.Flags().Bool("hex", false, "interpret DATA as a hex string")
}

func runWrite(cmd *cobra.Command, args []string) error {
	portName := args[0]
	data := args[1]

	hexMode, _ := cmd.Flags().GetBool("hex")

	var raw []byte
	if hexMode {
		decoded, err := hex.DecodeString(data)
		if err != nil {
			return fmt.Errorf("failed to parse hex data: %w", err)
		}
		raw = decoded
	} else {
		raw = []byte(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := wsclient.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := openAndLock(ctx, c, portName); err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := c.Send(ctx, wsclient.WriteRequest(portName, encoded)); err != nil {
		return fmt.Errorf("failed to send write request: %w", err)
	}

	frame, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("write failed: %s", describeError(errBody))
	}

	if _, ok := frame["Wrote"]; ok {
		fmt.Printf("Wrote %d bytes to %s\n", len(raw), portName)
		return nil
	}

	return fmt.Errorf("unexpected response to write request: %s", frame)
}

// openAndLock opens portName and takes its write-lock over c, returning the
// first error reported by either step.
func openAndLock(ctx context.Context, c *wsclient.Client, portName string) error {
	if err := c.Send(ctx, wsclient.OpenRequest(portName)); err != nil {
		return fmt.Errorf("failed to send open request: %w", err)
	}
	frame, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to read open response: %w", err)
	}
	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("failed to open %s: %s", portName, describeError(errBody))
	}

	if err := c.Send(ctx, wsclient.WriteLockRequest(portName)); err != nil {
		return fmt.Errorf("failed to send write-lock request: %w", err)
	}
	frame, err = c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to read write-lock response: %w", err)
	}
	if errBody, ok := frame["Error"]; ok {
		return fmt.Errorf("failed to lock %s: %s", portName, describeError(errBody))
	}

	return nil
}
