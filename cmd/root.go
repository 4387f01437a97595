// Package cmd implements the sunrise-go command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/sunrise-go/cmd/serve"
	"github.com/tphakala/sunrise-go/internal/buildinfo"
	"github.com/tphakala/sunrise-go/internal/conf"
)

// RootCommand creates and returns the root command. Running it without a
// subcommand starts the server.
func RootCommand(info *buildinfo.Context) *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:           conf.AppName,
		Short:         "Sunrise and sunset times web service",
		Long:          "Serves sunrise, sunset and solar noon times for any location and date, with address lookup, over a web UI and a JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, v, &configFile); err != nil {
		// Flag names are static, so this only fails on a programming error
		panic(err)
	}

	serveCmd := serve.Command(v, info)
	rootCmd.AddCommand(serveCmd, versionCommand(info))
	rootCmd.RunE = serveCmd.RunE

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
// and binds them to their configuration keys. Flags override environment
// variables, which override the config file.
func setupFlags(rootCmd *cobra.Command, v *viper.Viper, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config file (default: search ./config.yaml, ~/.config/sunrise-go, /etc/sunrise-go)")
	flags.IntP("port", "p", 5000, "Port to listen on")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Int("rate-limit", 60, "Requests per client per minute on the computation endpoints")

	bindings := map[string]string{
		"server.port":     "port",
		"debug":           "debug",
		"log.level":       "log-level",
		"ratelimit.limit": "rate-limit",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}

func versionCommand(info *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", conf.AppName, info)
		},
	}
}
