package command

import (
	"fmt"
	"os"

	"github.com/openincident/beacon/src/beacon"
	"github.com/openincident/beacon/src/config"
	vers "github.com/openincident/beacon/src/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	conf    *config.Config
	datadir *string
	version *bool
)

func init() {
	conf = config.NewDefaultConfig()

	cobra.OnInitialize(initConfig)

	// Base datadir
	datadir = rootCmd.PersistentFlags().StringP("datadir", "d", conf.DataDir, "Base configuration directory")

	// Service
	rootCmd.PersistentFlags().StringP("service-listen", "s", conf.ServiceAddr, "HTTP service listen to IP:Port")

	// Federation
	rootCmd.PersistentFlags().String("core-domain", conf.CoreDomain, "Domain publishing the shared core schemas")
	rootCmd.PersistentFlags().String("local-domain", conf.LocalDomain, "Domain under which this node publishes its documents")
	rootCmd.PersistentFlags().StringP("namespace", "n", conf.Namespace, "Name of the local schema namespace")
	rootCmd.PersistentFlags().StringP("moniker", "m", conf.Moniker, "Friendly name of this node")

	// Various
	rootCmd.PersistentFlags().Bool("store", conf.Store, "Use badgerDB instead of in-mem DB")
	rootCmd.PersistentFlags().String("log", conf.LogLevel, "Log level (debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("log-file", conf.LogFile, "Also write logs to this file")
	rootCmd.PersistentFlags().Int("page-size", conf.PageSize, "Number of items per outbox page")
	rootCmd.PersistentFlags().DurationP("timeout", "t", conf.Timeout, "HTTP timeout for pull page fetches")
	rootCmd.PersistentFlags().Int("cache-size", conf.CacheSize, "Number of items in LRU caches")

	// Version
	version = rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version and exit")
}

func initConfig() {
	viper.AddConfigPath(*datadir)
	viper.SetConfigName("beacon")

	viper.BindPFlags(rootCmd.PersistentFlags())

	if err := viper.ReadInConfig(); err != nil {
		conf.Logger().Warn(err, ". Taking cli or default.")
	}

	if err := viper.Unmarshal(conf); err != nil {
		conf.Logger().Warn(err, ". Taking cli or default.")
	}

	conf.SetDataDir(conf.DataDir)
}

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon incident federation node",
	Long:  "Beacon incident federation node",
	Run: func(cmd *cobra.Command, args []string) {
		if *version {
			fmt.Println(vers.Version)

			return
		}

		conf.Logger().WithFields(logrus.Fields{
			"datadir":        conf.DataDir,
			"service-listen": conf.ServiceAddr,
			"core-domain":    conf.CoreDomain,
			"local-domain":   conf.LocalDomain,
			"namespace":      conf.Namespace,
			"moniker":        conf.Moniker,
			"store":          conf.Store,
			"db":             conf.DatabaseDir,
			"log":            conf.LogLevel,
			"page-size":      conf.PageSize,
			"timeout":        conf.Timeout,
			"cache-size":     conf.CacheSize,
		}).Debug("RUN")

		engine := beacon.NewBeacon(conf)

		if err := engine.Init(); err != nil {
			conf.Logger().Error("Cannot initialize engine:", err)

			return
		}

		defer engine.Shutdown()

		engine.Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)

		os.Exit(1)
	}
}
