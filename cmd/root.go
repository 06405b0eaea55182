package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Screenshot-to-WhatsApp lead pipeline",
	Long: `Extracts phone numbers from contact screenshots with a vision model, stores
them as leads, and writes personalized WhatsApp messages and wa.me deep links
for each lead.

Settings come from an optional config.yaml, a .env file and OUTREACH_*
environment variables. The global flags below override all three.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyGlobalFlags(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("llm_provider", cfg.LLM.Provider),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	registerGlobalFlags(rootCmd)
}

func registerGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("log-level", "", "log level override (debug, info, warn, error)")
	pf.String("log-format", "", "log format override (json, console)")
	pf.String("store-driver", "", "store backend override (sqlite, postgres)")
	pf.String("database-url", "", "database DSN or SQLite path override")
}

// applyGlobalFlags copies explicitly set persistent flags onto c.
func applyGlobalFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("log-level", &c.Log.Level)
	set("log-format", &c.Log.Format)
	set("store-driver", &c.Store.Driver)
	set("database-url", &c.Store.DatabaseURL)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
