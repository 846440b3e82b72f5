// Package cli assembles the meetd command tree: serve runs the coordination
// core, check probes the external dependencies, version prints build info.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/config"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
	"github.com/OpenVidu/openvidu-meet-sub010/pkg/version"
)

const serviceName = "meetd"

// NewRootCommand builds the meetd command tree.
func NewRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "OpenVidu Meet coordination service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config-file", "c", "", "config file path")

	root.AddCommand(newServeCommand(&configFile))
	root.AddCommand(newCheckCommand(&configFile))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.Current(serviceName).String())
		},
	}
}

func loadConfig(configFile string) (*config.Config, error) {
	return config.NewLoader(configFile).Load()
}

func newLogger(cfg *config.Config) (*logger.ZapLogger, error) {
	return logger.NewZapLogger(logger.Config{
		Level:  cfg.Service.LogLevel,
		Format: cfg.Service.LogFormat,
	})
}
