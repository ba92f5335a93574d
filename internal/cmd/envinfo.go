package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/upstream"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and effective gateway settings.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		logger.Info("=== Gateway Environment Information ===")
		logger.Info("Application:")
		logger.Info("  Name:       " + identity.BinaryName)
		logger.Info("  Version:    " + versionInfo.Version)
		logger.Info("  Commit:     " + versionInfo.Commit)
		logger.Info("  Built:      " + versionInfo.BuildDate)
		logger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		logger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		logger.Info("")

		logger.Info("Runtime:")
		logger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		logger.Info("  GOOS/ARCH:  "+runtime.GOOS+"/"+runtime.GOARCH)
		logger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		logger.Info("")

		cfg := loadConfig()
		logger.Info("Gateway:")
		logger.Info("  Config:       " + configSource())
		logger.Info(fmt.Sprintf("  Listen:       %s:%d (tls=%t)", cfg.Server.Host, cfg.Server.Port, cfg.Server.TLSEnabled()))
		logger.Info(fmt.Sprintf("  API keys:     %d", len(cfg.Gateway.APIKeys)))
		logger.Info(fmt.Sprintf("  Rate limit:   %d per %s", cfg.Gateway.RateLimit, cfg.Gateway.RateWindow))
		logger.Info(fmt.Sprintf("  Workers:      %d", cfg.Gateway.Workers))
		logger.Info("  Timeout:      " + cfg.Gateway.UpstreamTimeout.String())
		logger.Info("  Profile:      " + cfg.Engine.ClientProfile)
		logger.Info("  Profiles:     " + strings.Join(upstream.ProfileNames(), ", "))
		logger.Info(fmt.Sprintf("  Metrics Port: %d (enabled=%t)", cfg.Metrics.Port, cfg.Metrics.Enabled))
		logger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
