package main

import (
	"github.com/spf13/cobra"

	log "github.com/freundallein/todo/backend/chassis/logging"

	"github.com/freundallein/todo/backend/chassis/config"
)

type flags struct {
	configPath string
	host       string
	port       int
}

func (f *flags) load(cmd *cobra.Command) (*config.AppConfig, error) {
	var appCfg *config.AppConfig
	var err error
	if f.configPath != "" {
		appCfg, err = config.ReadFile(f.configPath)
	} else {
		appCfg, err = config.Read()
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		appCfg.Server.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		appCfg.Server.Port = f.port
	}
	return appCfg, appCfg.Validate()
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "todo",
		Short:         "Todo List API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to the yaml config (defaults to $CFG_PATH)")

	serve := newServeCmd(f)
	root.AddCommand(serve, newMigrateCmd(f))
	// plain `todo` behaves like `todo serve`
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithFields(log.Fields{
			"event": "command_failed",
		}).Fatal(err)
	}
}
