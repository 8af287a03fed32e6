package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/security"
	"github.com/spf13/pflag"
)

func main() {
	configFile := pflag.StringP("config", "c", config.DefaultConfigFile, "config file")
	name := pflag.StringP("name", "n", "", "operator or device name")
	email := pflag.String("email", "", "operator email")
	id := pflag.Int("id", 0, "operator id")
	provider := pflag.String("provider", "local", "identity provider label")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.InitConfig(context.Background(), *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.AuthSecret == "" {
		fmt.Fprintln(os.Stderr, "auth-secret is not configured")
		os.Exit(1)
	}

	token, err := security.CreateIdentityToken(&security.Operator{
		Id:       *id,
		UserName: *name,
		Email:    *email,
		Provider: *provider,
	}, cfg.AuthSecret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
