package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/telemetry"
)

// version is overridden at build time with -ldflags "-X ...cli.version=..."
var version = "v0.1.0-dev"

var (
	cfgFile   string
	dbPath    string
	logFormat string
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forensia",
	Short: "Forensia - source forensics over an evidence graph",
	Long: `Forensia analyzes the sources behind claims in an evidence graph.

It scores how reliably each source's citations hold up, maps which sources
carry claims before others, flags tightly clustered bursts of citations,
and traces claims back to their origins.

It measures behaviour in the graph. It never decides whether a claim is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(telemetry.NewLogger(cfg.Log, os.Stderr))
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("forensia %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.forensia/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "graph store path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides log.format)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".forensia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FORENSIA_STORE_PATH, FORENSIA_ANALYSIS_WINDOW_HOURS, ...
	viper.SetEnvPrefix("FORENSIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key", "FORENSIA_LLM_API_KEY", "OPENAI_API_KEY")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file, environment and flags over the defaults
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	// nested keys only reach Unmarshal from env when viper knows them
	for key, dst := range map[string]*string{
		"store.path":  &cfg.Store.Path,
		"log.format":  &cfg.Log.Format,
		"log.level":   &cfg.Log.Level,
		"llm.api_key": &cfg.LLM.APIKey,
	} {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
