package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shoaibashk/wsss/config"
	"github.com/Shoaibashk/wsss/internal/serial"
	"github.com/Shoaibashk/wsss/internal/wsproto"
)

func TestServeCommandRegistered(t *testing.T) {
	resetCmd()
	rootCmd.AddCommand(serveCmd)

	cmd, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", cmd.Name())
}

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"bogus", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Logging.Level = tt.level
			logger := initLogger(cfg)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestWsHandlerAcceptsProtocolAndServesList(t *testing.T) {
	logger := log.NewWithOptions(io.Discard, log.Options{ReportTimestamp: false})
	logger.SetLevel(log.ErrorLevel)

	defCfg := serial.PortConfig{BaudRate: 9600, DataBits: 8, StopBits: 1, ReadTimeoutMs: 100, WriteTimeoutMs: 100}
	reg := serial.NewRegistry(defCfg, logger)
	defer reg.Shutdown()

	srv := httptest.NewServer(http.HandlerFunc(wsHandler(reg, logger)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{wsproto.Subprotocol},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"List":{}}`)))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "List")
}
