package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/typeduel/go/internal/ledger"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

type Config struct {
	Port    string
	Store   string
	NATSURL string
	Ledger  ledger.Config
}

func loadConfig() (*Config, error) {
	defaults := ledger.DefaultConfig()
	config := &Config{
		Port:    getEnv("PORT", "8080"),
		Store:   getEnv("LEDGER_STORE", storeMemory),
		NATSURL: getEnv("NATS_URL", ""),
		Ledger: ledger.Config{
			RaceDuration: getEnvAsDuration("RACE_DURATION", defaults.RaceDuration),
			SettleGrace:  getEnvAsDuration("SETTLE_GRACE", defaults.SettleGrace),
		},
	}

	if config.Store != storeMemory && config.Store != storePostgres {
		return nil, fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", storeMemory, storePostgres, config.Store)
	}
	if config.Ledger.RaceDuration <= 0 {
		return nil, fmt.Errorf("RACE_DURATION must be positive")
	}
	return config, nil
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if secs := getEnvAsInt(key, -1); secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
