package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Domain base URLs. Feishu and Lark share one API surface but live on
// separate endpoints.
const (
	feishuBaseURL = "https://open.feishu.cn"
	larkBaseURL   = "https://open.larksuite.com"
)

// FlexibleStringSlice is a []string that also accepts numbers in JSON
// and YAML, so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

func (f *FlexibleStringSlice) UnmarshalYAML(value *yaml.Node) error {
	var raw []any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case int:
			result = append(result, fmt.Sprintf("%d", val))
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// ToolPolicy is a per-group tool allow/deny override handed through to
// the host unmodified.
type ToolPolicy struct {
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty" yaml:"deny,omitempty"`
}

// GroupConfig overrides channel behavior for a single group chat.
// AllowFrom nil means "inherit the global group allowlist"; an empty
// non-nil list is an explicit deny-all.
type GroupConfig struct {
	AllowFrom      FlexibleStringSlice `json:"allow_from,omitempty" yaml:"allow_from,omitempty"`
	RequireMention *bool               `json:"require_mention,omitempty" yaml:"require_mention,omitempty"`
	Tools          *ToolPolicy         `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Config is the channel configuration, loaded once and treated as
// immutable for the lifetime of a gateway run.
type Config struct {
	AppID             string `env:"FEISHU_APP_ID" json:"app_id" yaml:"app_id"`
	AppSecret         string `env:"FEISHU_APP_SECRET" json:"app_secret" yaml:"app_secret"`
	EncryptKey        string `env:"FEISHU_ENCRYPT_KEY" json:"encrypt_key,omitempty" yaml:"encrypt_key,omitempty"`
	VerificationToken string `env:"FEISHU_VERIFICATION_TOKEN" json:"verification_token,omitempty" yaml:"verification_token,omitempty"`

	// Domain selects the platform variant: "feishu" or "lark".
	Domain         string `env:"FEISHU_DOMAIN" json:"domain,omitempty" yaml:"domain,omitempty"`
	ConnectionMode string `env:"FEISHU_CONNECTION_MODE" json:"connection_mode,omitempty" yaml:"connection_mode,omitempty"`

	DMPolicy       string `env:"FEISHU_DM_POLICY" json:"dm_policy,omitempty" yaml:"dm_policy,omitempty"`
	GroupPolicy    string `env:"FEISHU_GROUP_POLICY" json:"group_policy,omitempty" yaml:"group_policy,omitempty"`
	RequireMention *bool  `env:"FEISHU_REQUIRE_MENTION" json:"require_mention,omitempty" yaml:"require_mention,omitempty"`

	AllowFrom      FlexibleStringSlice `env:"FEISHU_ALLOW_FROM" json:"allow_from,omitempty" yaml:"allow_from,omitempty"`
	GroupAllowFrom FlexibleStringSlice `env:"FEISHU_GROUP_ALLOW_FROM" json:"group_allow_from,omitempty" yaml:"group_allow_from,omitempty"`

	// Groups maps chat ids to per-group overrides. Lookup is
	// case-insensitive with exact-case entries winning.
	Groups map[string]GroupConfig `json:"groups,omitempty" yaml:"groups,omitempty"`

	RegistryPath string `env:"FEISHU_REGISTRY_PATH" json:"registry_path,omitempty" yaml:"registry_path,omitempty"`
	LogLevel     string `env:"FEISHU_LOG_LEVEL" json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// Default returns a Config with platform defaults applied.
func Default() *Config {
	return &Config{
		Domain:         "feishu",
		ConnectionMode: "websocket",
		DMPolicy:       "pairing",
		GroupPolicy:    "allowlist",
		LogLevel:       "info",
	}
}

// Load reads configuration from an optional JSON or YAML file and then
// applies environment overrides. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml":
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return nil, fmt.Errorf("parse config %s: %w", path, err)
				}
			default:
				if err := json.Unmarshal(data, cfg); err != nil {
					return nil, fmt.Errorf("parse config %s: %w", path, err)
				}
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults restores platform defaults for fields a config file may
// have blanked out.
func (c *Config) applyDefaults() {
	if c.Domain == "" {
		c.Domain = "feishu"
	}
	if c.ConnectionMode == "" {
		c.ConnectionMode = "websocket"
	}
	if c.DMPolicy == "" {
		c.DMPolicy = "pairing"
	}
	if c.GroupPolicy == "" {
		c.GroupPolicy = "allowlist"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RegistryPath == "" {
		homeDir, _ := os.UserHomeDir()
		c.RegistryPath = filepath.Join(homeDir, ".feishu-channel", "chats.db")
	}
}

// BaseURL returns the API endpoint for the configured domain.
func (c *Config) BaseURL() string {
	if strings.EqualFold(c.Domain, "lark") {
		return larkBaseURL
	}
	return feishuBaseURL
}

// Validate checks the fields the gateway cannot run without.
func (c *Config) Validate() error {
	if c.AppID == "" || c.AppSecret == "" {
		return &ConfigError{Field: "app_id/app_secret", Message: "required"}
	}
	switch c.Domain {
	case "feishu", "lark":
	default:
		return &ConfigError{Field: "domain", Message: fmt.Sprintf("unknown domain %q", c.Domain)}
	}
	switch c.ConnectionMode {
	case "websocket", "webhook":
	default:
		return &ConfigError{Field: "connection_mode", Message: fmt.Sprintf("unknown mode %q", c.ConnectionMode)}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
