// Command wsldbd is the WeaselDB server: one positional argument, the
// TCP port to listen on, per spec 6's CLI contract.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/config"
	"github.com/tbui468/weaseldb/kv/memengine"
	"github.com/tbui468/weaseldb/predictor"
	"github.com/tbui468/weaseldb/server"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wsldbd <port>",
		Short: "WeaselDB server",
		Args:  cobra.ExactArgs(1),
		RunE:  runServer,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional TOML config file (CLI flags/args always win)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[0], err)
	}

	if configPath != "" {
		cfg, err := config.LoadServer(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		_ = cfg // data_dir/model_dir are reserved for a persistent kv.Engine; memengine ignores them
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	engine := memengine.New()
	if err := catalog.EnsureColumnFamilies(engine); err != nil {
		return fmt.Errorf("initializing catalog: %w", err)
	}

	srv := server.New(engine, predictor.NewLinear(), log)
	return srv.ListenAndServe(fmt.Sprintf(":%d", port))
}
