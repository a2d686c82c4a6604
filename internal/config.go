package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glamcal/internal/auth"
	"github.com/starford/glamcal/internal/backup"
	"github.com/starford/glamcal/internal/scheduling"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Data       DataConfig        `yaml:"data"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Scheduling SchedulingConfig  `yaml:"scheduling"`
	Backup     BackupConfig      `yaml:"backup"`
	ICS        ICSConfig         `yaml:"ics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Data, &c.SQLite, &c.Auth, &c.Scheduling, &c.Backup, &c.ICS} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the persisted blobs and the optional catalog seed.
type DataConfig struct {
	Path     string `yaml:"path"`
	SeedFile string `yaml:"seed_file"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite search index configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "hash": Bearer token checked against TokenHash, an Argon2id PHC string
//     produced by `glamcal hash-token`.
type AuthConfig struct {
	Mode      auth.Mode `yaml:"mode"`
	Token     string    `yaml:"token"`
	TokenHash string    `yaml:"token_hash"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = auth.ModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(auth.ModeDisabled, auth.ModeToken, auth.ModeHash)),
	); err != nil {
		return err
	}
	switch {
	case c.Mode == auth.ModeToken && c.Token == "":
		return fmt.Errorf("auth: mode is %q but token is empty", auth.ModeToken)
	case c.Mode == auth.ModeHash && c.TokenHash == "":
		return fmt.Errorf("auth: mode is %q but token_hash is empty", auth.ModeHash)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == auth.ModeToken || c.Mode == auth.ModeHash
}

// Checker builds the token checker for the configured mode.
func (c *AuthConfig) Checker() (*auth.Checker, error) {
	return auth.NewChecker(c.Mode, c.Token, c.TokenHash)
}

// SchedulingConfig tunes follow-up projection and closed-day skipping.
type SchedulingConfig struct {
	FollowUpDays  int `yaml:"follow_up_days"`
	MaxSearchDays int `yaml:"max_search_days"`
}

// Validate validates the scheduling configuration.
func (c *SchedulingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FollowUpDays, validation.Required, validation.Min(1), validation.Max(3650)),
		validation.Field(&c.MaxSearchDays, validation.Required, validation.Min(1), validation.Max(3660)),
	)
}

// Scheduling converts the section into scheduling.Config.
func (c *SchedulingConfig) Scheduling() scheduling.Config {
	return scheduling.Config{FollowUpDays: c.FollowUpDays, MaxSearchDays: c.MaxSearchDays}
}

// BackupConfig controls scheduled data snapshots.
type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Keep     int    `yaml:"keep"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.Required, validation.By(func(any) error {
			return backup.ValidateSchedule(c.Schedule)
		})),
		validation.Field(&c.Keep, validation.Required, validation.Min(1)),
	)
}

// ICSConfig controls the iCalendar feed.
type ICSConfig struct {
	Timezone  string `yaml:"timezone"`
	ProductID string `yaml:"product_id"`
}

// Validate validates the ICS configuration.
func (c *ICSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
		validation.Field(&c.ProductID, validation.Required),
	)
}

// Location resolves Timezone; empty means the local zone.
func (c *ICSConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New("must be an IANA time zone name")
	}
	return loc, nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	sched := scheduling.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./glamcal.db",
		},
		Auth: AuthConfig{
			Mode: auth.ModeDisabled,
		},
		Scheduling: SchedulingConfig{
			FollowUpDays:  sched.FollowUpDays,
			MaxSearchDays: sched.MaxSearchDays,
		},
		Backup: BackupConfig{
			Enabled:  false,
			Schedule: backup.DefaultSchedule,
			Keep:     backup.DefaultKeep,
		},
		ICS: ICSConfig{
			ProductID: "-//GlamCal//Salon Calendar//EN",
		},
	}
}
