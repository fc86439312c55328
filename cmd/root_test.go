package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// resetCmd resets the rootCmd state between tests.
func resetCmd() {
	viper.Reset()
	rootCmd = &cobra.Command{
		Use:           "wsss",
		Short:         "wsss - WebSocket serial port bridge server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfgFile = ""
	serverURL = "ws://127.0.0.1:10080/ws"

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file")
	rootCmd.PersistentFlags().IntP("http_port", "p", 10080, "HTTP/WebSocket listen port")
	rootCmd.PersistentFlags().StringP("bind_address", "a", "127.0.0.1", "HTTP/WebSocket bind address")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://127.0.0.1:10080/ws", "wsss server WebSocket endpoint")
	_ = viper.BindPFlag("http_port", rootCmd.PersistentFlags().Lookup("http_port"))
	_ = viper.BindPFlag("bind_address", rootCmd.PersistentFlags().Lookup("bind_address"))

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("wsss %s\n", Version)
		},
	}
	versionCmd.Flags().BoolP("short", "s", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

func TestRootExecute(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "help flag", args: []string{"--help"}, wantErr: false},
		{name: "version command", args: []string{"version"}, wantErr: false},
		{name: "invalid flag", args: []string{"--invalid-flag"}, wantErr: true},
		{name: "no arguments (should show help)", args: []string{}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetCmd()

			out := &bytes.Buffer{}
			rootCmd.SetOut(out)
			rootCmd.SetErr(out)
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()

			if tt.wantErr {
				assert.Error(t, err, "expected error for args: %v", tt.args)
			} else {
				assert.NoError(t, err, "unexpected error for args: %v", tt.args)
			}
		})
	}
}

func TestRootExecuteContext(t *testing.T) {
	resetCmd()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"version"})
	_ = rootCmd.ExecuteContext(ctx)

	assert.NotNil(t, rootCmd.ExecuteContext, "ExecuteContext should be available")
}

func TestVersionCommand(t *testing.T) {
	tests := []string{"dev", "v1.0.0"}

	for _, version := range tests {
		t.Run(version, func(t *testing.T) {
			resetCmd()

			oldVersion := Version
			Version = version
			defer func() { Version = oldVersion }()

			out := &bytes.Buffer{}
			rootCmd.SetOut(out)
			rootCmd.SetErr(out)
			rootCmd.SetArgs([]string{"version"})

			err := rootCmd.Execute()
			assert.NoError(t, err)
			assert.Contains(t, out.String(), version)
		})
	}
}

func TestHelpFlag(t *testing.T) {
	resetCmd()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	assert.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "wsss")
	assert.Contains(t, output, "Usage")
}

func TestServerFlagDefault(t *testing.T) {
	resetCmd()
	assert.Equal(t, "ws://127.0.0.1:10080/ws", serverURL)
}
