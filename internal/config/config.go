package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OrganizationConfig names the organization on exported calendars and
// outgoing mail.
type OrganizationConfig struct {
	Name string `yaml:"name" json:"name"`
	// Domain is the right-hand side of ICS UIDs.
	Domain string `yaml:"domain" json:"domain"`
	// Product is used to build the ICS PRODID.
	Product string `yaml:"product" json:"product"`
}

// ProdID returns the iCalendar PRODID for the organization.
func (o OrganizationConfig) ProdID() string {
	return "-//" + o.Name + "//" + o.Product + "//EN"
}

// StorageConfig selects where dashboard collections are persisted.
type StorageConfig struct {
	// Driver is "file" (one JSON file per collection) or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is a directory for "file" and a database file for "sqlite".
	// ":memory:" keeps a sqlite store in memory.
	Path string `yaml:"path" json:"path"`
}

// CacheDir is where downloaded ICS feeds are kept: inside the data
// directory for "file", next to the database for "sqlite".
func (s StorageConfig) CacheDir() string {
	switch {
	case s.Path == "" || s.Path == ":memory:":
		return filepath.Join(os.TempDir(), "churchconnect", "ics-cache")
	case s.Driver == "sqlite":
		return filepath.Join(filepath.Dir(s.Path), "ics-cache")
	default:
		return filepath.Join(s.Path, "ics-cache")
	}
}

// EmailConfig configures outgoing mail.
type EmailConfig struct {
	// Provider is "emailjs" or "log". With emailjs, failed sends fall back
	// to the log sender.
	Provider    string `yaml:"provider" json:"provider"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	ServiceID   string `yaml:"service_id" json:"service_id"`
	TemplateID  string `yaml:"template_id" json:"template_id"`
	UserID      string `yaml:"user_id" json:"user_id"`
	AccessToken string `yaml:"access_token" json:"-"`
	From        string `yaml:"from" json:"from"`
}

// NotificationsConfig toggles automated messages.
type NotificationsConfig struct {
	RegistrationConfirmation bool `yaml:"registration_confirmation" json:"registration_confirmation"`
	VolunteerReminders       bool `yaml:"volunteer_reminders" json:"volunteer_reminders"`
	DonationThankYou         bool `yaml:"donation_thank_you" json:"donation_thank_you"`
}

// RemindersConfig schedules the volunteer reminder job.
type RemindersConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cron is a 5-field schedule evaluated in Config.Timezone.
	Cron string `yaml:"cron" json:"cron"`
}

// CalendarConfig controls how events are placed on the month grid.
type CalendarConfig struct {
	// ExpandRecurring places recurring events that carry an RRULE. Off by
	// default: recurring events are then shown in lists only.
	ExpandRecurring bool `yaml:"expand_recurring" json:"expand_recurring"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for the calendar, all-day dates and
	// the reminder schedule (e.g. "America/Chicago").
	Timezone string `yaml:"timezone" json:"timezone"`

	Organization  OrganizationConfig  `yaml:"organization" json:"organization"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Email         EmailConfig         `yaml:"email" json:"email"`
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Reminders     RemindersConfig     `yaml:"reminders" json:"reminders"`
	Calendar      CalendarConfig      `yaml:"calendar" json:"calendar"`
	Log           LogConfig           `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "America/Chicago"
	defaultCron     = "0 18 * * *"
	defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	defaultFrom     = "church@example.com"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		Organization: OrganizationConfig{
			Name:    "ChurchConnect",
			Domain:  "churchconnect.com",
			Product: "Event Manager",
		},
		Storage: StorageConfig{Driver: "file", Path: "./var/data"},
		Email: EmailConfig{
			Provider: "log",
			Endpoint: defaultEndpoint,
			From:     defaultFrom,
		},
		Notifications: NotificationsConfig{
			RegistrationConfirmation: true,
			VolunteerReminders:       true,
			DonationThankYou:         true,
		},
		Reminders: RemindersConfig{Enabled: true, Cron: defaultCron},
		Log:       LogConfig{Level: "info", MaxSizeMB: 10, MaxAgeDays: 7},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Organization.Name == "" {
		c.Organization.Name = "ChurchConnect"
	}
	if c.Organization.Domain == "" {
		c.Organization.Domain = "churchconnect.com"
	}
	if c.Organization.Product == "" {
		c.Organization.Product = "Event Manager"
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "file", "sqlite":
		c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	default:
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = "./var/churchconnect.db"
		} else {
			c.Storage.Path = "./var/data"
		}
	}

	switch strings.ToLower(c.Email.Provider) {
	case "emailjs", "log":
		c.Email.Provider = strings.ToLower(c.Email.Provider)
	default:
		c.Email.Provider = "log"
	}
	if c.Email.Endpoint == "" {
		c.Email.Endpoint = defaultEndpoint
	}
	if c.Email.From == "" {
		c.Email.From = defaultFrom
	}

	if c.Reminders.Cron == "" {
		c.Reminders.Cron = defaultCron
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 7
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// ApplyEnv overlays values from the process environment, after loading an
// optional .env file from the working directory. Empty variables are
// ignored.
func (c *Config) ApplyEnv() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	c.Listen = getEnv("CHURCHCONNECT_LISTEN", c.Listen)
	c.Timezone = getEnv("CHURCHCONNECT_TIMEZONE", c.Timezone)
	c.Storage.Path = getEnv("CHURCHCONNECT_STORAGE_PATH", c.Storage.Path)
	c.Email.ServiceID = getEnv("EMAILJS_SERVICE_ID", c.Email.ServiceID)
	c.Email.TemplateID = getEnv("EMAILJS_TEMPLATE_ID", c.Email.TemplateID)
	c.Email.UserID = getEnv("EMAILJS_USER_ID", c.Email.UserID)
	c.Email.AccessToken = getEnv("EMAILJS_ACCESS_TOKEN", c.Email.AccessToken)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load loads configuration from the given YAML path and applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is read and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
