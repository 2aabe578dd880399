package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/lobby"
	"github.com/mcdev12/typeduel/go/internal/race/room"
)

const (
	transportPoll = "poll"
	transportNATS = "nats"
)

// Duration reads "90s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	ParticipantID string `yaml:"participant_id"`
	LedgerURL     string `yaml:"ledger_url"`
	ListenAddr    string `yaml:"listen_addr"`

	Race struct {
		Duration             Duration `yaml:"duration"`
		Tick                 Duration `yaml:"tick"`
		PhasePollInterval    Duration `yaml:"phase_poll_interval"`
		OpponentPollInterval Duration `yaml:"opponent_poll_interval"`
		ResultsPollInterval  Duration `yaml:"results_poll_interval"`
		CommitTimeout        Duration `yaml:"commit_timeout"`
	} `yaml:"race"`

	Feed struct {
		Transport string `yaml:"transport"`
		NATSURL   string `yaml:"nats_url"`
	} `yaml:"feed"`

	Lobby struct {
		ScanLimit       int      `yaml:"scan_limit"`
		RefreshInterval Duration `yaml:"refresh_interval"`
	} `yaml:"lobby"`
}

func defaultConfig() *Config {
	rc := room.DefaultConfig()
	lc := lobby.DefaultConfig()

	c := &Config{
		LedgerURL:  "http://localhost:8080",
		ListenAddr: ":8081",
	}
	c.Race.Duration = Duration(rc.Duration)
	c.Race.Tick = Duration(rc.Tick)
	c.Race.PhasePollInterval = Duration(rc.PhasePollInterval)
	c.Race.OpponentPollInterval = Duration(rc.OpponentPollInterval)
	c.Race.ResultsPollInterval = Duration(rc.ResultsPollInterval)
	c.Race.CommitTimeout = Duration(rc.CommitTimeout)
	c.Feed.Transport = transportPoll
	c.Feed.NATSURL = "nats://localhost:4222"
	c.Lobby.ScanLimit = lc.ScanLimit
	c.Lobby.RefreshInterval = Duration(lc.RefreshInterval)
	return c
}

// loadConfig reads path over the defaults, then applies env overrides. An
// empty path skips the file.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.ParticipantID = getEnv("PARTICIPANT_ID", config.ParticipantID)
	config.LedgerURL = getEnv("LEDGER_URL", config.LedgerURL)
	config.ListenAddr = getEnv("LISTEN_ADDR", config.ListenAddr)
	config.Feed.Transport = getEnv("FEED_TRANSPORT", config.Feed.Transport)
	config.Feed.NATSURL = getEnv("NATS_URL", config.Feed.NATSURL)
	config.Lobby.ScanLimit = getEnvAsInt("LOBBY_SCAN_LIMIT", config.Lobby.ScanLimit)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.ParticipantID == "" {
		return errors.New("participant_id is required")
	}
	if models.ParticipantID(c.ParticipantID).IsEmpty() {
		return errors.New("participant_id must not be the empty participant")
	}
	if c.Feed.Transport != transportPoll && c.Feed.Transport != transportNATS {
		return fmt.Errorf("feed.transport must be %q or %q, got %q", transportPoll, transportNATS, c.Feed.Transport)
	}
	if c.Race.Duration <= 0 || c.Race.Tick <= 0 {
		return errors.New("race.duration and race.tick must be positive")
	}
	if c.Lobby.ScanLimit <= 0 {
		return errors.New("lobby.scan_limit must be positive")
	}
	return nil
}

func (c *Config) roomConfig() room.Config {
	return room.Config{
		Duration:             time.Duration(c.Race.Duration),
		Tick:                 time.Duration(c.Race.Tick),
		PhasePollInterval:    time.Duration(c.Race.PhasePollInterval),
		OpponentPollInterval: time.Duration(c.Race.OpponentPollInterval),
		ResultsPollInterval:  time.Duration(c.Race.ResultsPollInterval),
		CommitTimeout:        time.Duration(c.Race.CommitTimeout),
	}
}

func (c *Config) lobbyConfig() lobby.Config {
	return lobby.Config{
		ScanLimit:       c.Lobby.ScanLimit,
		RefreshInterval: time.Duration(c.Lobby.RefreshInterval),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
