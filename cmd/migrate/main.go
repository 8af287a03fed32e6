package main

import (
	"context"
	"fmt"
	"os"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/kvstore"
	"github.com/spf13/pflag"
)

// migrate creates the key-value table on the configured MySQL store.
func main() {
	configFile := pflag.StringP("config", "c", config.DefaultConfigFile, "config file")
	dsn := pflag.String("dsn", "", "override store.dsn")
	pflag.Parse()

	cfg, err := config.InitConfig(context.Background(), *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	if cfg.Store.DSN == "" {
		fmt.Fprintln(os.Stderr, "store.dsn is not configured")
		os.Exit(1)
	}

	db, err := core.ConnectDB(cfg.Store.DSN, core.ParseLogLevel(cfg.Store.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := kvstore.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("store table is up to date")
}
