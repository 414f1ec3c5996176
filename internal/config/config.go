package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a yaml file with
// environment overrides for the secrets.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	JiraBaseURL     string `yaml:"jira_base_url"`
	JiraUsername    string `yaml:"jira_username"`
	JiraAPIToken    string `yaml:"jira_api_token"`
	JiraBearerToken string `yaml:"jira_bearer_token"`

	// CheckTime is the wall-clock "HH:MM" the daily missing-worklog
	// check fires at, for the users listed in CheckUsers.
	CheckTime  string   `yaml:"check_time"`
	CheckUsers []string `yaml:"check_users"`

	Notifier string `yaml:"notifier"`

	SMTPAddr string   `yaml:"smtp_addr"`
	SMTPFrom string   `yaml:"smtp_from"`
	SMTPTo   []string `yaml:"smtp_to"`

	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`
}

// Load reads the config file at path, or the CONFIG_PATH env value, or
// ./config.yaml. Environment variables override the file for the Jira
// and Slack credentials.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &Config{
		ListenAddr: ":8080",
		DBPath:     "./timetracker.db",
		CheckTime:  "20:00",
		Notifier:   "smtp",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"JIRA_BASE_URL":     &cfg.JiraBaseURL,
		"JIRA_USERNAME":     &cfg.JiraUsername,
		"JIRA_API_TOKEN":    &cfg.JiraAPIToken,
		"JIRA_BEARER_TOKEN": &cfg.JiraBearerToken,
		"SLACK_BOT_TOKEN":   &cfg.SlackBotToken,
		"LISTEN_ADDR":       &cfg.ListenAddr,
	}
	for name, field := range overrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

func (c *Config) validate() error {
	if c.JiraBaseURL == "" {
		return fmt.Errorf("config: jira_base_url is required")
	}
	if c.JiraBearerToken == "" && (c.JiraUsername == "" || c.JiraAPIToken == "") {
		return fmt.Errorf("config: jira credentials required (username/api token or bearer token)")
	}
	switch c.Notifier {
	case "smtp":
		if c.SMTPAddr == "" || c.SMTPFrom == "" || len(c.SMTPTo) == 0 {
			return fmt.Errorf("config: smtp notifier needs smtp_addr, smtp_from and smtp_to")
		}
	case "slack":
		if c.SlackBotToken == "" || c.SlackChannel == "" {
			return fmt.Errorf("config: slack notifier needs slack_bot_token and slack_channel")
		}
	default:
		return fmt.Errorf("config: unknown notifier %q", c.Notifier)
	}
	if _, err := c.CheckMinuteOfDay(); err != nil {
		return err
	}
	return nil
}

// CheckMinuteOfDay converts CheckTime to a minute offset from midnight.
func (c *Config) CheckMinuteOfDay() (int, error) {
	parts := strings.SplitN(c.CheckTime, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("config: bad check_time %q", c.CheckTime)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(c.CheckTime, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("config: bad check_time %q", c.CheckTime)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("config: bad check_time %q", c.CheckTime)
	}
	return hour*60 + minute, nil
}
