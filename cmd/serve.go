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
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/Shoaibashk/wsss/config"
	"github.com/Shoaibashk/wsss/internal/httpui"
	"github.com/Shoaibashk/wsss/internal/serial"
	"github.com/Shoaibashk/wsss/internal/session"
	"github.com/Shoaibashk/wsss/internal/wsproto"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wsss WebSocket server",
	Long: `Start the wsss server: an HTTP listener serving a static test page at
GET / and a WebSocket endpoint at /ws carrying the websocket-serial-json
protocol.

Example:
  wsss serve                         # listen on 127.0.0.1:10080
  wsss serve -p 9000 -a 0.0.0.0      # custom port and bind address`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := initLogger(cfg)
	logger.Info("starting wsss server",
		"version", Version,
		"http_port", cfg.HTTPPort,
		"bind_address", cfg.BindAddress)

	defaultSerialConfig, err := cfg.Serial.Defaults.ToPortConfig()
	if err != nil {
		return fmt.Errorf("failed to build serial defaults: %w", err)
	}

	reg := serial.NewRegistryWithExclusions(defaultSerialConfig, logger, cfg.Serial.ExcludePatterns)
	defer reg.Shutdown()

	watchStop := reg.Scanner().WatchPorts(5, hotplugLogger(logger))
	defer reg.Scanner().StopWatch(watchStop)

	mux := http.NewServeMux()
	mux.Handle("/", httpui.Handler(strconv.Itoa(cfg.HTTPPort)))
	mux.HandleFunc("/ws", wsHandler(reg, logger))

	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.HTTPPort))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wsss listening", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// hotplugLogger builds a serial.PortChangeCallback that logs devices as they
// appear and disappear from the OS enumeration. It never subscribes or
// opens anything on its own — purely passive, so a port showing up here
// does not imply a client holds it.
func hotplugLogger(logger *log.Logger) serial.PortChangeCallback {
	return func(added, removed, _ []serial.PortInfo) {
		for _, p := range added {
			logger.Info("serial port appeared", "port", p.Name, "type", p.PortType.String())
		}
		for _, p := range removed {
			logger.Info("serial port disappeared", "port", p.Name)
		}
	}
}

func wsHandler(reg *serial.Registry, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: []string{wsproto.Subprotocol},
		})
		if err != nil {
			logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		sess := session.New(conn, reg, logger)
		if err := sess.Run(r.Context()); err != nil {
			logger.Debug("session ended", "error", err)
		}
	}
}

// initLogger creates and configures a charmbracelet logger based on config.
func initLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}
