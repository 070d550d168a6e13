package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slog"

	"careline/internal/app/agent"
	"careline/internal/config"
	"careline/internal/domain/conflict"
	"careline/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *agent.App
	debug      bool
	jsonOutput bool
	serverURL  string
	deviceID   string
)

var rootCmd = &cobra.Command{
	Use:   "careline",
	Short: "CareLine - offline sync agent for home-care visits",
	Long: `CareLine keeps a caregiver's visit documentation flowing while the
device is offline. Check-ins, check-outs, completed tasks and care notes
are queued locally, shown immediately, and synced to the agency backend
as soon as connectivity returns. Version conflicts with changes made at
the office are detected per field and resolved automatically where policy
allows, or held for an explicit decision.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command-line flags win over environment and file configuration.
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if deviceID != "" {
		cfg.DeviceID = deviceID
	}
	if debug {
		cfg.LogLevel = "debug"
		cfg.Env = config.EnvLocal
	}

	log = logger.New(cfg.Env)

	policy, err := conflictPolicy(cfg.ConflictPolicies)
	if err != nil {
		return fmt.Errorf("parse conflict policies: %w", err)
	}

	app, err = agent.New(cfg, policy, log)
	if err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), "app", app))
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		configDir := filepath.Join(home, ".careline")
		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file found, defaults apply.
	}

	return config.MustLoad(), nil
}

// conflictPolicy parses the comma-separated field=strategy pairs from
// configuration into the resolver's automatic policy table.
func conflictPolicy(spec string) (conflict.Policy, error) {
	policy := conflict.Policy{FieldPolicies: make(map[string]conflict.AutoStrategy)}
	if spec == "" {
		return policy, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		field, strategy, ok := strings.Cut(pair, "=")
		if !ok {
			return policy, fmt.Errorf("malformed policy %q, want field=strategy", pair)
		}
		switch s := conflict.AutoStrategy(strategy); s {
		case conflict.AutoClientWins, conflict.AutoServerWins, conflict.AutoNewestWins:
			policy.FieldPolicies[field] = s
		default:
			return policy, fmt.Errorf("unknown strategy %q for field %q", strategy, field)
		}
	}
	return policy, nil
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "agency backend address")
	rootCmd.PersistentFlags().StringVar(&deviceID, "device", "", "device identifier sent with every request")

	// Commands are attached in the init() of init.go.
}
