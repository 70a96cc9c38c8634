// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/lib/secret"
)

// DefaultEnvFile is read when LoadOptions.EnvFile is empty. Its absence
// is not an error.
const DefaultEnvFile = ".env"

// Config is the validated configuration of one relay process. Build it
// once with Load and pass it by reference; call Close on shutdown to
// release the secret buffers.
type Config struct {
	// UserID is the bot's Matrix identity.
	UserID ref.UserID

	// Password is the Matrix login password.
	Password *secret.Buffer

	// APIKey is the completion provider API key.
	APIKey *secret.Buffer

	// AuthorizedUsers lists the senders the relay answers. Empty means
	// everyone.
	AuthorizedUsers []ref.UserID

	// HomeserverURL overrides well-known discovery when non-empty.
	HomeserverURL string

	// Settings holds the non-secret tuning, from the config file or
	// defaults.
	Settings Settings
}

// Close zeroes and releases the secret buffers. Idempotent.
func (c *Config) Close() error {
	var errs []error
	for _, buffer := range []*secret.Buffer{c.Password, c.APIKey} {
		if buffer != nil {
			if err := buffer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// environment is the process-environment half of the configuration:
// identity and secrets, which never live in the tuning file.
type environment struct {
	Username        string   `envconfig:"MATRIX_USERNAME" validate:"required"`
	Password        string   `envconfig:"MATRIX_PASSWORD" validate:"required"`
	APIKey          string   `envconfig:"OPENAI_API_KEY" validate:"required"`
	AuthorizedUsers []string `envconfig:"AUTHORIZED_USERS"`
	HomeserverURL   string   `envconfig:"MATRIX_HOMESERVER_URL" validate:"omitempty,http_url"`
	ConfigFile      string   `envconfig:"RELAY_CONFIG"`
}

// secretVariables are removed from the process environment once read,
// so nothing the relay spawns or dumps inherits them.
var secretVariables = []string{"MATRIX_PASSWORD", "OPENAI_API_KEY"}

// Settings is the optional tuning file. Every field has a default.
type Settings struct {
	// DeviceDisplayName names the Matrix device created at login.
	DeviceDisplayName string `yaml:"device_display_name" json:"device_display_name" validate:"required"`

	Completion CompletionSettings `yaml:"completion" json:"completion"`
	History    HistorySettings    `yaml:"history" json:"history"`
	Sync       SyncSettings       `yaml:"sync" json:"sync"`
}

// CompletionSettings shapes requests to the completion provider.
type CompletionSettings struct {
	// BaseURL is the API root. Empty means the provider default.
	BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,http_url"`

	Model string `yaml:"model" json:"model" validate:"required"`

	// MaxTokens caps reply length; 0 leaves it to the provider.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`

	// Temperature is left to the provider when unset.
	Temperature *float64 `yaml:"temperature" json:"temperature" validate:"omitempty,gte=0,lte=2"`

	// SystemPrompt, when set, is sent ahead of the room history.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`

	// User is the end-user tag sent with each request.
	User string `yaml:"user" json:"user"`

	// Timeout bounds one completion call.
	Timeout Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// HistorySettings bounds conversation context.
type HistorySettings struct {
	// PageSize is how many timeline events are fetched per request.
	PageSize int `yaml:"page_size" json:"page_size" validate:"gte=1,lte=1000"`
}

// SyncSettings configures the /sync long-poll.
type SyncSettings struct {
	Timeout Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

// Duration is a time.Duration written as a Go duration string ("30s")
// in both YAML and JSON.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultSettings returns the tuning used when no file is given, and
// the base a file is merged onto.
func DefaultSettings() Settings {
	return Settings{
		DeviceDisplayName: "matrix-chatgpt",
		Completion: CompletionSettings{
			Model:   "gpt-3.5-turbo",
			User:    "matrix-chatgpt",
			Timeout: Duration(2 * time.Minute),
		},
		History: HistorySettings{PageSize: 20},
		Sync:    SyncSettings{Timeout: Duration(30 * time.Second)},
	}
}

// LoadOptions carries command-line overrides.
type LoadOptions struct {
	// EnvFile is a dotenv file applied before the environment is read.
	// Variables already set in the environment win. Empty means
	// DefaultEnvFile, loaded only if present; an explicit path must
	// exist.
	EnvFile string

	// ConfigFile is the tuning file path. It takes precedence over
	// RELAY_CONFIG. Empty with RELAY_CONFIG unset means defaults.
	ConfigFile string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the dotenv file, the environment and the optional tuning
// file, validates everything, and moves the secrets into guarded
// memory. All problems found are returned together.
func Load(options LoadOptions) (*Config, error) {
	if err := loadEnvFile(options.EnvFile); err != nil {
		return nil, err
	}

	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	for _, name := range secretVariables {
		os.Unsetenv(name)
	}

	var errs []error
	if err := validate.Struct(env); err != nil {
		errs = append(errs, describeValidation(err, environmentFieldNames)...)
	}

	userID, err := ref.ParseUserID(strings.TrimSpace(env.Username))
	if err != nil && env.Username != "" {
		errs = append(errs, fmt.Errorf("MATRIX_USERNAME: %w", err))
	}

	authorized, authErrs := parseAuthorizedUsers(env.AuthorizedUsers)
	errs = append(errs, authErrs...)

	configFile := options.ConfigFile
	if configFile == "" {
		configFile = env.ConfigFile
	}
	settings := DefaultSettings()
	if configFile != "" {
		if err := LoadSettingsFile(configFile, &settings); err != nil {
			errs = append(errs, err)
		}
	}
	settings.expandVariables()
	if err := validate.Struct(settings); err != nil {
		errs = append(errs, describeValidation(err, nil)...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg := &Config{
		UserID:          userID,
		AuthorizedUsers: authorized,
		HomeserverURL:   strings.TrimRight(env.HomeserverURL, "/"),
		Settings:        settings,
	}
	if cfg.Password, err = secret.NewFromString(env.Password); err != nil {
		return nil, fmt.Errorf("config: protecting MATRIX_PASSWORD: %w", err)
	}
	if cfg.APIKey, err = secret.NewFromString(env.APIKey); err != nil {
		cfg.Close()
		return nil, fmt.Errorf("config: protecting OPENAI_API_KEY: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading env file %s: %w", path, err)
	}
	return nil
}

// parseAuthorizedUsers validates a comma-separated sender list.
// Blank entries (trailing commas, stray spaces) are skipped.
func parseAuthorizedUsers(raw []string) ([]ref.UserID, []error) {
	var users []ref.UserID
	var errs []error
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		userID, err := ref.ParseUserID(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("AUTHORIZED_USERS: %w", err))
			continue
		}
		users = append(users, userID)
	}
	return users, errs
}

// LoadSettingsFile merges the file at path onto settings. The format
// follows the extension: .yaml/.yml, or .json/.jsonc (comments and
// trailing commas allowed). Unknown keys are an error so that typos do
// not silently fall back to defaults.
func LoadSettingsFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(settings); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: %s: unsupported extension %q (want .yaml, .yml, .json or .jsonc)", path, filepath.Ext(path))
	}
	return nil
}

// expandVariables substitutes ${VAR} and ${VAR:-default} references in
// the string settings that commonly point at deployment-specific
// values.
func (s *Settings) expandVariables() {
	s.Completion.BaseURL = expandVars(s.Completion.BaseURL)
	s.Completion.SystemPrompt = expandVars(s.Completion.SystemPrompt)
	s.DeviceDisplayName = expandVars(s.DeviceDisplayName)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// environmentFieldNames maps struct fields to the variables users set.
var environmentFieldNames = map[string]string{
	"Username":        "MATRIX_USERNAME",
	"Password":        "MATRIX_PASSWORD",
	"APIKey":          "OPENAI_API_KEY",
	"AuthorizedUsers": "AUTHORIZED_USERS",
	"HomeserverURL":   "MATRIX_HOMESERVER_URL",
	"ConfigFile":      "RELAY_CONFIG",
}

// describeValidation turns validator errors into one error per field,
// named the way the user spells it (environment variable, or the
// dotted struct path for settings).
func describeValidation(err error, names map[string]string) []error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []error{fmt.Errorf("config: %w", err)}
	}
	errs := make([]error, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		name := fieldError.Namespace()
		if mapped, ok := names[fieldError.StructField()]; ok {
			name = mapped
		}
		switch fieldError.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", name))
		default:
			errs = append(errs, fmt.Errorf("%s: failed %q validation (value %v)", name, fieldError.Tag()+fieldParam(fieldError), fieldError.Value()))
		}
	}
	return errs
}

func fieldParam(fieldError validator.FieldError) string {
	if fieldError.Param() == "" {
		return ""
	}
	return "=" + fieldError.Param()
}
