package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
)

var RootCmd = &cobra.Command{
	Use:   "db-tube",
	Short: "A table-to-table data migration tool",
	Long: `
  ____  ____    _____ _   _ ____  _____
 |  _ \| __ )  |_   _| | | | __ )| ____|
 | | | |  _ \    | | | | | |  _ \|  _|
 | |_| | |_) |   | | | |_| | |_) | |___
 |____/|____/    |_|  \___/|____/|_____|

DB TUBE - copy rows between databases through a field mapping
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if debug {
			level = logrus.DebugLevel
		}
		logrus.SetLevel(level)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetOutput(os.Stderr)
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(bindSettings, initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-tube.yaml)")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging, dumps records that fail to map")
	RootCmd.PersistentFlags().String("plan", "", "migration plan file (default is settings.plan)")
}

// initConfig reads in the config file and .env if present.
func initConfig() {
	// .env only feeds the environment; a missing file is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-tube")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
