package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-scorer"

	envPrefix = "RESUME_SCORER"
)

type Config struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini openai"`
	// Workers bounds concurrent scoring in rank. Zero means one per CPU.
	Workers            int     `mapstructure:"workers" validate:"min=0"`
	DegradeUnavailable bool    `mapstructure:"degrade-unavailable"`
	ExcludeFile        string  `mapstructure:"exclude-file"`
	MinScore           float64 `mapstructure:"min-score" validate:"min=0,max=100"`
	Top                int     `mapstructure:"top" validate:"min=0"`
	KeepFailed         bool    `mapstructure:"keep-failed"`
	MetricsFile        string  `mapstructure:"metrics-file"`

	SkillGap *SkillGapConfig `mapstructure:"skill-gap"`
	Cache    *CacheConfig    `mapstructure:"cache"`
	Gemini   *GeminiConfig   `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig   `mapstructure:"openai"`
}

type SkillGapConfig struct {
	// Classifier enables the Gemini skill classifier. Without it missing and
	// extra skills come from plain set difference.
	Classifier   bool          `mapstructure:"classifier"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=0"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"min=0"`
}

type CacheConfig struct {
	Backend string       `mapstructure:"backend" validate:"oneof=none memory redis"`
	Redis   *RedisConfig `mapstructure:"redis" validate:"required_if=Backend redis"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	PasswordFile string        `mapstructure:"password-file"`
	DB           int           `mapstructure:"db" validate:"min=0"`
	Prefix       string        `mapstructure:"prefix"`
	TTL          time.Duration `mapstructure:"ttl" validate:"min=0"`
}

type GeminiConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	EmbeddingModel    string `mapstructure:"embedding-model"`
	MaxRetries        int    `mapstructure:"max-retries" validate:"min=0"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute" validate:"min=0"`
}

type OpenAIConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	BaseURL           string `mapstructure:"base-url" validate:"omitempty,url"`
	Dimensions        int    `mapstructure:"dimensions" validate:"min=0"`
	MaxRetries        int    `mapstructure:"max-retries" validate:"min=0"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute" validate:"min=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-scorer scores candidate resumes against a job offer",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("openai.api-key-file", "OPENAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "embedding provider: gemini or openai")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gemini")
	v.SetDefault("workers", 0)
	v.SetDefault("degrade-unavailable", false)
	v.SetDefault("exclude-file", "")
	v.SetDefault("min-score", 0)
	v.SetDefault("top", 0)
	v.SetDefault("keep-failed", false)
	v.SetDefault("metrics-file", "")
	v.SetDefault("skill-gap.classifier", false)
	v.SetDefault("skill-gap.timeout", "20s")
	v.SetDefault("skill-gap.max-log-length", 200)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", "")
	v.SetDefault("gemini.embedding-model", "")
	v.SetDefault("gemini.max-retries", 3)
	v.SetDefault("gemini.requests-per-minute", 0)
	v.SetDefault("openai.api-key-file", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("openai.base-url", "")
	v.SetDefault("openai.dimensions", 0)
	v.SetDefault("openai.max-retries", 2)
	v.SetDefault("openai.requests-per-minute", 0)
}

func initConfig() {
	// version needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// A missing .env is fine, the variables may come from the environment.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error. An absent default
	// config file is fine since every key has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	if config.Cache != nil {
		config.Cache.Backend = strings.ToLower(strings.TrimSpace(config.Cache.Backend))
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return config, nil
}
