package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/upstream"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the gateway could start with the current configuration: the
config validates, the staging directory is writable and the engine can be
built with the configured client profile.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg := loadConfig()
		logger.Info("✅ Configuration valid", zap.String("source", configSource()))

		stager := &gateway.Stager{Dir: cfg.Gateway.StagingDir}
		if err := stager.Writable(); err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Staging directory not writable", err)
			return
		}
		logger.Info("✅ Staging directory writable")

		client, err := upstream.New(upstream.Config{
			ClientProfile:      cfg.Engine.ClientProfile,
			Timeout:            cfg.Engine.Timeout,
			FollowRedirects:    cfg.Engine.FollowRedirects,
			InsecureSkipVerify: cfg.Engine.InsecureSkipVerify,
			ProxyURL:           cfg.Engine.ProxyURL,
		})
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Engine could not be created", err)
			return
		}
		logger.Info("✅ Engine ready", zap.String("client_profile", client.Profile()))

		if len(cfg.Gateway.APIKeys) == 0 {
			logger.Warn("⚠️  No API keys configured; the gateway will reject every request")
		} else {
			logger.Info("✅ API keys configured", zap.Int("count", len(cfg.Gateway.APIKeys)))
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
