package cmd

import (
	"context"
	"fmt"
	"strings"

	"db-tube/internal/engine"
	"db-tube/internal/plan"
	"db-tube/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"` // the migration destination
}

// Settings are the run options from the config file, env and flags.
type Settings struct {
	BatchSize   int
	OnError     string
	Fill        string
	Plan        string
	LookupCache int
}

// bindSettings registers defaults, flag bindings and env lookup for the
// settings keys. Precedence is flag, env, config file, default.
func bindSettings() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("settings.batch_size", 1000)
	viper.SetDefault("settings.on_error", "skip")
	viper.SetDefault("settings.fill", "falsy")
	viper.SetDefault("settings.plan", "migrations.yaml")
	viper.SetDefault("settings.lookup_cache", 1024)

	viper.BindPFlag("settings.plan", RootCmd.PersistentFlags().Lookup("plan"))
	viper.BindPFlag("settings.batch_size", migrateCmd.Flags().Lookup("batch-size"))

	// SETTINGS_BATCH_SIZE overrides settings.batch_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func loadDBConfigs() ([]DBConfig, error) {
	var configs []DBConfig
	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no databases configured")
	}
	seen := make(map[string]bool)
	for _, c := range configs {
		if c.Name == "" || c.Driver == "" || c.DSN == "" {
			return nil, fmt.Errorf("database %q needs name, driver and dsn", c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate database name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return configs, nil
}

// GetActiveDBConfig returns the destination database configuration.
func GetActiveDBConfig(configs []DBConfig) (*DBConfig, error) {
	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true on the destination)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// loadSettings reads settings key by key so bound flags and env variables
// override the config file.
func loadSettings() (Settings, error) {
	s := Settings{
		BatchSize:   viper.GetInt("settings.batch_size"),
		OnError:     viper.GetString("settings.on_error"),
		Fill:        viper.GetString("settings.fill"),
		Plan:        viper.GetString("settings.plan"),
		LookupCache: viper.GetInt("settings.lookup_cache"),
	}
	if s.Plan == "" {
		return s, fmt.Errorf("settings.plan is empty")
	}
	return s, nil
}

// session holds the open databases of one command run.
type session struct {
	settings Settings
	plan     *plan.Plan
	handles  *plan.Handles
}

// openSession loads the plan and opens every configured database. The
// single non-destination database, if there is exactly one, is the default
// source.
func openSession(ctx context.Context) (*session, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	p, err := plan.LoadFile(settings.Plan)
	if err != nil {
		return nil, err
	}
	configs, err := loadDBConfigs()
	if err != nil {
		return nil, err
	}
	active, err := GetActiveDBConfig(configs)
	if err != nil {
		return nil, err
	}
	fill, err := engine.ParseFillPolicy(settings.Fill)
	if err != nil {
		return nil, err
	}

	h := &plan.Handles{Stores: make(map[string]*store.Store), Fill: fill, LookupCache: settings.LookupCache}
	s := &session{settings: settings, plan: p, handles: h}
	var sources []string
	for _, c := range configs {
		st, err := store.Open(ctx, c.Name, c.Driver, c.DSN, c.Schema)
		if err != nil {
			s.Close()
			return nil, err
		}
		h.Stores[c.Name] = st
		if c.Name == active.Name {
			h.Dest = st
		} else {
			sources = append(sources, c.Name)
		}
		fmt.Printf("Connected to %s (%s)\n", c.Name, c.Driver)
	}
	if len(sources) == 1 {
		h.DefaultSource = sources[0]
	}
	logrus.WithFields(logrus.Fields{"dest": active.Name, "sources": sources, "plan": settings.Plan}).Debug("session opened")
	return s, nil
}

func (s *session) Close() {
	for name, st := range s.handles.Stores {
		if err := st.Close(); err != nil {
			logrus.WithError(err).WithField("db", name).Warn("failed to close database")
		}
	}
}
