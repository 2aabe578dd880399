package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_STORE", "")
	t.Setenv("RACE_DURATION", "")
	t.Setenv("SETTLE_GRACE", "")

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, storeMemory, config.Store)
	assert.Equal(t, 60*time.Second, config.Ledger.RaceDuration)
	assert.Equal(t, 15*time.Second, config.Ledger.SettleGrace)
}

func TestLoadConfigDurations(t *testing.T) {
	t.Setenv("RACE_DURATION", "90s")
	t.Setenv("SETTLE_GRACE", "5")

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, config.Ledger.RaceDuration)
	assert.Equal(t, 5*time.Second, config.Ledger.SettleGrace)
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "floppy")
	_, err := loadConfig()
	assert.Error(t, err)
}
