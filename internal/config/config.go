// Package config loads service configuration from the environment with
// sensible defaults, backed by viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tolga/reserva/internal/clock"
)

// Config is the resolved service configuration.
type Config struct {
	HTTPAddr string
	LogLevel string

	DBDriver     string // "sqlite" or "postgres"
	DBConnection string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Timezone         string
	Holidays         []string
	BusinessHours    map[time.Weekday]clock.Window
	AutoApproveAfter time.Duration
	ArchiveAfter     time.Duration

	CORSOrigins []string
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "MON": time.Monday, "TUE": time.Tuesday, "WED": time.Wednesday,
	"THU": time.Thursday, "FRI": time.Friday, "SAT": time.Saturday,
}

// Load reads the environment and returns the resolved configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_CONNECTION", "reserva.db")
	v.SetDefault("ACCESS_TTL_MIN", 15)
	v.SetDefault("REFRESH_TTL_DAYS", 7)
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("AUTO_APPROVE_AFTER_HOURS", 24)
	v.SetDefault("ARCHIVE_AFTER_DAYS", 90)
	v.SetDefault("CORS_ORIGINS", "*")

	cfg := &Config{
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		DBDriver:         v.GetString("DB_DRIVER"),
		DBConnection:     v.GetString("DB_CONNECTION"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		AccessTTL:        time.Duration(v.GetInt("ACCESS_TTL_MIN")) * time.Minute,
		RefreshTTL:       time.Duration(v.GetInt("REFRESH_TTL_DAYS")) * 24 * time.Hour,
		Timezone:         v.GetString("TIMEZONE"),
		AutoApproveAfter: time.Duration(v.GetInt("AUTO_APPROVE_AFTER_HOURS")) * time.Hour,
		ArchiveAfter:     time.Duration(v.GetInt("ARCHIVE_AFTER_DAYS")) * 24 * time.Hour,
		CORSOrigins:      splitList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if raw := v.GetString("HOLIDAYS"); raw != "" {
		cfg.Holidays = splitList(raw)
	} else {
		cfg.Holidays = clock.BrazilianFederalHolidays()
	}

	windows, err := parseBusinessHours(v.GetString("BUSINESS_HOURS"))
	if err != nil {
		return nil, err
	}
	cfg.BusinessHours = windows

	return cfg, nil
}

// Calendar builds the business calendar from the configured timezone,
// windows and holiday set.
func (c *Config) Calendar() (*clock.Calendar, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return clock.NewCalendar(loc, c.BusinessHours, c.Holidays), nil
}

// parseBusinessHours parses "MON=07:00-22:00,SAT=08:00-18:00". Weekdays not
// named are closed. An empty value yields the default institutional hours.
func parseBusinessHours(raw string) (map[time.Weekday]clock.Window, error) {
	if raw == "" {
		return clock.DefaultWindows(), nil
	}
	windows := make(map[time.Weekday]clock.Window)
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid BUSINESS_HOURS entry %q", entry)
		}
		day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(parts[0]))]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q in BUSINESS_HOURS", parts[0])
		}
		w, err := clock.ParseWindow(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid BUSINESS_HOURS entry %q: %w", entry, err)
		}
		windows[day] = w
	}
	return windows, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
