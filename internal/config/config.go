package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide static configuration.
type Config struct {
	Server struct {
		Port               int    `yaml:"port"`
		AdminToken         string `yaml:"admin_token"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
		RateLimitBurst     int    `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Grid struct {
		DayStart    string `yaml:"day_start"`
		DayEnd      string `yaml:"day_end"`
		SlotMinutes int    `yaml:"slot_minutes"`
	} `yaml:"grid"`

	Booking struct {
		HoldMinutes       int `yaml:"hold_minutes"`
		MinAdvanceMinutes int `yaml:"min_advance_minutes"`
		MaxAdvanceDays    int `yaml:"max_advance_days"`
		MaxActivePerUser  int `yaml:"max_active_per_user"`
	} `yaml:"booking"`

	Sweeper struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"sweeper"`

	Rooms []RoomConfig `yaml:"rooms"`
}

// RoomConfig describes one room in the catalog.
type RoomConfig struct {
	ID            int64  `yaml:"id"`
	Name          string `yaml:"name"`
	Capacity      int    `yaml:"capacity"`
	HasProjector  bool   `yaml:"has_projector"`
	HasWhiteboard bool   `yaml:"has_whiteboard"`
	Inactive      bool   `yaml:"inactive"`
}

// Load reads config from path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/roomreserve.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Grid.DayStart == "" {
		cfg.Grid.DayStart = "08:00"
	}
	if cfg.Grid.DayEnd == "" {
		cfg.Grid.DayEnd = "20:30"
	}
	if cfg.Grid.SlotMinutes <= 0 {
		cfg.Grid.SlotMinutes = 30
	}

	for i, room := range cfg.Rooms {
		if room.ID <= 0 {
			return nil, fmt.Errorf("rooms[%d]: id must be positive", i)
		}
		if room.Capacity <= 0 {
			return nil, fmt.Errorf("rooms[%d] (%s): capacity must be positive", i, room.Name)
		}
	}

	return &cfg, nil
}

// HoldDuration returns how long a pending hold stays confirmable.
func (c *Config) HoldDuration() time.Duration {
	if c.Booking.HoldMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Booking.HoldMinutes) * time.Minute
}

// MinAdvance returns the minimum lead time for a booking start.
func (c *Config) MinAdvance() time.Duration {
	if c.Booking.MinAdvanceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

// MaxAdvance returns how far ahead a booking may start.
func (c *Config) MaxAdvance() time.Duration {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Booking.MaxAdvanceDays) * 24 * time.Hour
}

// BackupInterval returns how often to snapshot the database.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SweepInterval returns the sweeper cadence.
func (c *Config) SweepInterval() time.Duration {
	if c.Sweeper.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

// CacheTTL returns the availability cache lifetime; zero disables the
// cache.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
