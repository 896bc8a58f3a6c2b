package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultImportDirName = ".repodesk_import_temp"
	defaultCommitMessage = "Commit via repodesk"
)

// Config captures runtime options sourced from environment variables.
type Config struct {
	GitHubToken     string
	GitHubBaseURL   string        `validate:"omitempty,url"`
	GitHubUploadURL string        `validate:"omitempty,url"`
	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=text json"`
	ImportDir       string        `validate:"required"`
	GitUserName     string
	GitUserEmail    string        `validate:"omitempty,email"`
	NetworkTimeout  time.Duration `validate:"gte=0"`
	CommitMessage   string        `validate:"required,max=500"`
	MetricsFile     string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads options from the environment, applies defaults, and performs validation.
func LoadConfig() (Config, error) {
	cfg := Config{
		LogLevel:      strings.ToLower(strings.TrimSpace(envOrDefault("REPODESK_LOG_LEVEL", defaultLogLevel))),
		LogFormat:     strings.ToLower(strings.TrimSpace(envOrDefault("REPODESK_LOG_FORMAT", defaultLogFormat))),
		CommitMessage: envOrDefault("REPODESK_COMMIT_MESSAGE", defaultCommitMessage),
	}

	cfg.GitHubToken = strings.TrimSpace(os.Getenv("REPODESK_GITHUB_TOKEN"))
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	cfg.GitHubBaseURL = strings.TrimSpace(os.Getenv("REPODESK_GITHUB_BASE_URL"))
	cfg.GitHubUploadURL = strings.TrimSpace(os.Getenv("REPODESK_GITHUB_UPLOAD_URL"))
	cfg.GitUserName = strings.TrimSpace(os.Getenv("REPODESK_GIT_USER_NAME"))
	cfg.GitUserEmail = strings.TrimSpace(os.Getenv("REPODESK_GIT_USER_EMAIL"))
	cfg.MetricsFile = strings.TrimSpace(os.Getenv("REPODESK_METRICS_FILE"))

	if rawTimeout := strings.TrimSpace(os.Getenv("REPODESK_NETWORK_TIMEOUT")); rawTimeout != "" {
		timeout, err := time.ParseDuration(rawTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse REPODESK_NETWORK_TIMEOUT: %w", err)
		}
		cfg.NetworkTimeout = timeout
	}

	cfg.ImportDir = strings.TrimSpace(os.Getenv("REPODESK_IMPORT_DIR"))
	if cfg.ImportDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory for import dir: %w", err)
		}
		cfg.ImportDir = filepath.Join(home, defaultImportDirName)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints and the safety of the import directory,
// which is wiped on every folder import.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if (c.GitHubBaseURL == "") != (c.GitHubUploadURL == "") {
		return fmt.Errorf("REPODESK_GITHUB_BASE_URL and REPODESK_GITHUB_UPLOAD_URL must both be set for GitHub Enterprise")
	}

	if !filepath.IsAbs(c.ImportDir) {
		return fmt.Errorf("REPODESK_IMPORT_DIR must be an absolute path, got %q", c.ImportDir)
	}
	dir := filepath.Clean(c.ImportDir)
	if dir == filepath.VolumeName(dir)+string(filepath.Separator) {
		return fmt.Errorf("REPODESK_IMPORT_DIR cannot be the filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && dir == filepath.Clean(home) {
		return fmt.Errorf("REPODESK_IMPORT_DIR cannot be the home directory")
	}

	return nil
}

var envNames = map[string]string{
	"GitHubBaseURL":   "REPODESK_GITHUB_BASE_URL",
	"GitHubUploadURL": "REPODESK_GITHUB_UPLOAD_URL",
	"LogLevel":        "REPODESK_LOG_LEVEL",
	"LogFormat":       "REPODESK_LOG_FORMAT",
	"ImportDir":       "REPODESK_IMPORT_DIR",
	"GitUserEmail":    "REPODESK_GIT_USER_EMAIL",
	"NetworkTimeout":  "REPODESK_NETWORK_TIMEOUT",
	"CommitMessage":   "REPODESK_COMMIT_MESSAGE",
}

func describeFieldError(fe validator.FieldError) string {
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("unsupported %s %q (want one of %s)", name, fe.Value(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a url", name)
	case "email":
		return fmt.Sprintf("%s must be an email address", name)
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
