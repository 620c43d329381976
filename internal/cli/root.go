package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/syllogos/internal/logging"
	"github.com/ppiankov/syllogos/internal/model"
)

// Version is stamped at build time via -ldflags
var Version = "0.1.0"

var secretKeys = []string{
	"llm.api_key",
	"llm.base_url",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"cache.redis_password",
}

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "syllogos",
	Short: "Streaming credibility analysis of research papers",
	Long: `Syllogos asks a language model to assess a research paper and turns
the model's streamed JSON into progressive, normalized analysis snapshots.

Every run prints one metadata line followed by full snapshots as NDJSON.
Scores are clamped to the weights of the paper's assessment framework and
the paper's classification is locked once the model commits to it.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// ExecuteContext runs the root command. Cancelling ctx aborts in-flight
// analyses.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.syllogos/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("syllogos v%s\n", Version)
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.syllogos")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	configureEnv(viper.GetViper())

	if err := viper.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg with v, so environment variables
// reach keys that no config file mentions
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	return v.ReadConfig(bytes.NewReader(data))
}

// configureEnv maps SYLLOGOS_SECTION_KEY variables onto config keys
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("SYLLOGOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Omitted from the defaults document when empty
	for _, key := range secretKeys {
		_ = v.BindEnv(key)
	}
}

// loadConfig resolves the effective configuration: defaults, config file,
// environment and flags, in increasing priority
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills provider credentials from the provider's own
// environment variables when the config leaves them empty
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini", "google":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
			if cfg.LLM.APIKey == "" {
				cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
			}
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if cfg.Output.Verbose && level == "info" {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
