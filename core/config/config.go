package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub GitHubConfig
	Jira   JiraConfig
	OTel   OTelConfig
	Redis  RedisConfig
	Server ServerConfig
	Env    string
	DryRun bool
	Debug  bool
}

type GitHubConfig struct {
	Token   string
	Owner   string
	Repo    string
	BaseURL string // optional, GitHub Enterprise Server API root
}

type JiraConfig struct {
	Host     string
	Email    string
	APIToken string
	Project  string
	Epic     string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type RedisConfig struct {
	URL string
	// LockTTL bounds how long a crashed holder blocks other runs. Live
	// holders refresh it.
	LockTTL time.Duration
}

type ServerConfig struct {
	Port          string
	WebhookSecret string
}

type ServiceType string

const (
	ServiceTypeCLI    ServiceType = "cli"
	ServiceTypeServer ServiceType = "server"
)

// Overrides carries values given on the command line; they win over every
// other source. Empty strings and nil pointers leave the loaded value alone.
type Overrides struct {
	Owner   string
	Repo    string
	Epic    string
	Project string
	DryRun  *bool
	Debug   bool
}

// Load builds the configuration for one process. Sources, later wins:
//   - .env.<service> (or .env) in development
//   - environment variables
//   - GitHub Action inputs (INPUT_*) when GITHUB_ACTIONS is set
//   - command-line overrides
func Load(serviceType ServiceType, overrides Overrides) (Config, error) {
	if getEnv("GHAS_SYNC_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:    getEnv("GHAS_SYNC_ENV", "development"),
		DryRun: getEnvBool("GHAS_SYNC_DRY_RUN", false),
		GitHub: GitHubConfig{
			Token:   getEnv("GITHUB_TOKEN", ""),
			Owner:   getEnv("GHAS_SYNC_OWNER", ""),
			Repo:    getEnv("GHAS_SYNC_REPO", ""),
			BaseURL: getEnv("GITHUB_API_URL_OVERRIDE", ""),
		},
		Jira: JiraConfig{
			Host:     getEnv("JIRA_HOST", ""),
			Email:    getEnv("JIRA_EMAIL", ""),
			APIToken: getEnv("JIRA_API_TOKEN", ""),
			Project:  getEnv("GHAS_SYNC_JIRA_PROJECT", ""),
			Epic:     getEnv("GHAS_SYNC_JIRA_EPIC", ""),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ghas-jira-sync"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			LockTTL: getEnvDuration("GHAS_SYNC_LOCK_TTL", 15*time.Minute),
		},
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			WebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
		},
	}

	if IsGitHubAction() {
		applyActionInputs(&cfg)
	}
	applyOverrides(&cfg, overrides)

	if err := cfg.Validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// IsGitHubAction reports whether the process runs inside a GitHub Actions job.
func IsGitHubAction() bool {
	return os.Getenv("GITHUB_ACTIONS") != ""
}

// applyActionInputs reads the action's `with:` inputs. Owner and repo default
// to the repository the workflow runs in.
func applyActionInputs(cfg *Config) {
	if owner, repo, ok := strings.Cut(os.Getenv("GITHUB_REPOSITORY"), "/"); ok {
		cfg.GitHub.Owner = owner
		cfg.GitHub.Repo = repo
	}

	setIfPresent(&cfg.GitHub.Owner, actionInput("owner"))
	setIfPresent(&cfg.GitHub.Repo, actionInput("repo"))
	setIfPresent(&cfg.GitHub.Token, actionInput("github-token"))
	setIfPresent(&cfg.Jira.Epic, actionInput("jira-epic"))
	setIfPresent(&cfg.Jira.Project, actionInput("jira-project"))
	setIfPresent(&cfg.Jira.Host, actionInput("jira-host"))
	setIfPresent(&cfg.Jira.Email, actionInput("jira-email"))
	setIfPresent(&cfg.Jira.APIToken, actionInput("jira-api-token"))

	if v := actionInput("dry-run"); v != "" {
		cfg.DryRun = v == "true"
	}
}

func applyOverrides(cfg *Config, o Overrides) {
	setIfPresent(&cfg.GitHub.Owner, o.Owner)
	setIfPresent(&cfg.GitHub.Repo, o.Repo)
	setIfPresent(&cfg.Jira.Epic, o.Epic)
	setIfPresent(&cfg.Jira.Project, o.Project)
	if o.DryRun != nil {
		cfg.DryRun = *o.DryRun
	}
	if o.Debug {
		cfg.Debug = true
	}
}

func (c Config) Validate(serviceType ServiceType) error {
	var errs []error

	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("GitHub token is required (GITHUB_TOKEN)"))
	}
	if c.GitHub.Owner == "" {
		errs = append(errs, errors.New("GitHub owner is required"))
	}
	if c.GitHub.Repo == "" {
		errs = append(errs, errors.New("GitHub repo is required"))
	}
	if !isHTTPURL(c.Jira.Host) {
		errs = append(errs, errors.New("Jira host must be a valid URL (JIRA_HOST)"))
	}
	if _, err := mail.ParseAddress(c.Jira.Email); err != nil {
		errs = append(errs, errors.New("Jira email must be valid (JIRA_EMAIL)"))
	}
	if c.Jira.APIToken == "" {
		errs = append(errs, errors.New("Jira API token is required (JIRA_API_TOKEN)"))
	}
	if c.Jira.Project == "" {
		errs = append(errs, errors.New("Jira project key is required"))
	}
	if c.Jira.Epic == "" {
		errs = append(errs, errors.New("Jira epic ID is required"))
	}
	if serviceType == ServiceTypeServer && c.Server.WebhookSecret == "" {
		errs = append(errs, errors.New("GITHUB_WEBHOOK_SECRET is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func actionInput(name string) string {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return strings.TrimSpace(os.Getenv(key))
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
