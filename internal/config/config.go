// Package config decodes the environment of both tools into typed structs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Credential is the shared channel token configuration.
type Credential struct {
	Token      string `env:"LINE_TOKEN"`
	TokenParam string `env:"LINE_TOKEN_PARAM"`
}

// API holds optional base URL overrides for the LINE endpoints.
type API struct {
	BaseURL     string `env:"LINE_API_BASE"`
	DataBaseURL string `env:"LINE_DATA_API_BASE"`
}

type Dispatch struct {
	Credential
	API

	Mode             string     `env:"MODE" envDefault:"broadcast"`
	DryRun           bool       `env:"DRY_RUN"`
	Message          string     `env:"MESSAGE" envDefault:"祝你順心 😊"`
	Text             string     `env:"TEXT"`
	Timezone         string     `env:"TIMEZONE" envDefault:"Asia/Taipei"`
	StopPercent      float64    `env:"QUOTA_STOP_PERCENT" envDefault:"0.95"`
	MinRemain        int64      `env:"QUOTA_MIN_REMAIN" envDefault:"0"`
	UserIDs          []string   `env:"USER_IDS" envSeparator:","`
	EstimateAudience bool       `env:"ESTIMATE_AUDIENCE"`
	MulticastRate    float64    `env:"MULTICAST_RATE" envDefault:"0"`
	DispatchTable    string     `env:"DISPATCH_TABLE"`
	LogLevel         slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Location resolves Timezone.
func (d Dispatch) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return loc, nil
}

type Deploy struct {
	Credential
	API

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadDispatch decodes the dispatcher configuration. A nil environment reads
// the process environment.
func LoadDispatch(environment map[string]string) (Dispatch, error) {
	var cfg Dispatch
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Dispatch{}, fmt.Errorf("config: %w", err)
	}

	cfg.UserIDs = cleanIDs(cfg.UserIDs)
	if cfg.StopPercent <= 0 {
		return Dispatch{}, fmt.Errorf("config: QUOTA_STOP_PERCENT must be positive, got %v", cfg.StopPercent)
	}
	if cfg.MinRemain < 0 {
		return Dispatch{}, fmt.Errorf("config: QUOTA_MIN_REMAIN must not be negative, got %d", cfg.MinRemain)
	}
	if cfg.MulticastRate < 0 {
		return Dispatch{}, errors.New("config: MULTICAST_RATE must not be negative")
	}
	if _, err := cfg.Location(); err != nil {
		return Dispatch{}, err
	}
	return cfg, nil
}

// LoadDeploy decodes the deployer configuration. A nil environment reads the
// process environment.
func LoadDeploy(environment map[string]string) (Deploy, error) {
	var cfg Deploy
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Deploy{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// cleanIDs trims entries and drops empty ones, keeping order.
func cleanIDs(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
