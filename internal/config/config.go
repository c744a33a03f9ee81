package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/at-ishikawa/preppal/internal/validation"
)

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Notes     NotesConfig     `mapstructure:"notes"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Recording RecordingConfig `mapstructure:"recording"`
	Outputs   OutputsConfig   `mapstructure:"outputs"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type AuthConfig struct {
	APIKey      string `mapstructure:"api_key"`
	IdentityURL string `mapstructure:"identity_url" validate:"required,url"`
	TokenURL    string `mapstructure:"token_url" validate:"required,url"`
	SessionFile string `mapstructure:"session_file" validate:"required"`
}

type NotesConfig struct {
	Storage  string          `mapstructure:"storage" validate:"oneof=yaml database"`
	File     string          `mapstructure:"file"`
	Subjects []SubjectConfig `mapstructure:"subjects" validate:"dive"`
}

type SubjectConfig struct {
	ID    string `mapstructure:"id" validate:"required"`
	Name  string `mapstructure:"name" validate:"required"`
	Color string `mapstructure:"color"`
}

type MetadataConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=file bolt"`
	Directory string `mapstructure:"directory"`
	BoltFile  string `mapstructure:"bolt_file"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	Path            string            `mapstructure:"path"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type RecordingConfig struct {
	Language             string `mapstructure:"language"`
	SampleIntervalMillis int    `mapstructure:"sample_interval_millis" validate:"gt=0"`
}

type OutputsConfig struct {
	TranscriptDirectory string `mapstructure:"transcript_directory"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ConfigLoader struct {
	viper     *viper.Viper
	validator *validation.Validator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, err := validation.New("mapstructure")
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/preppal")
	}

	return &ConfigLoader{
		viper:     v,
		validator: validate,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("auth.identity_url", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("auth.token_url", "https://securetoken.googleapis.com/v1")
	v.SetDefault("auth.session_file", filepath.Join(".preppal", "session.yml"))
	v.SetDefault("notes.storage", "yaml")
	v.SetDefault("notes.file", filepath.Join(".preppal", "notes.yml"))
	v.SetDefault("notes.subjects", DefaultSubjects())
	v.SetDefault("metadata.backend", "file")
	v.SetDefault("metadata.directory", filepath.Join(".preppal", "metadata"))
	v.SetDefault("metadata.bolt_file", filepath.Join(".preppal", "metadata.db"))
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(".preppal", "notes.db"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "preppal")
	v.SetDefault("database.username", "user")
	v.SetDefault("recording.language", "en-US")
	v.SetDefault("recording.sample_interval_millis", 16)
	v.SetDefault("outputs.transcript_directory", filepath.Join("outputs", "transcripts"))
	v.SetDefault("openai.model", "gpt-4o-mini")

	if err := v.BindEnv("api.base_url", "PREPPAL_API_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind PREPPAL_API_URL environment variable: %w", err)
	}

	// Identity provider key is bound to the environment only (not read from the config file)
	if err := v.BindEnv("auth.api_key", "FIREBASE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind FIREBASE_API_KEY environment variable: %w", err)
	}

	if err := v.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("openai.model", "OPENAI_MODEL"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_MODEL environment variable: %w", err)
	}

	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultSubjects is the subject catalog used when the config file does not define one.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{ID: "cs", Name: "Computer Science", Color: "blue"},
		{ID: "math", Name: "Mathematics", Color: "green"},
		{ID: "physics", Name: "Physics", Color: "purple"},
		{ID: "chemistry", Name: "Chemistry", Color: "orange"},
	}
}
