package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FEED_DRIVER", "memory")
	t.Setenv("GENERATION_TRIGGER_ON_FEED", "true")
	t.Setenv("GENERATION_JOB_TIMEOUT", "90")
	t.Setenv("NOTEBOOK_CACHE_TTL", "1m")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Feed.Driver)
	assert.Equal(t, "SOURCES", cfg.Feed.StreamName)
	assert.True(t, cfg.Generation.TriggerOnFeed)
	assert.Equal(t, 90*time.Second, cfg.Generation.JobTimeout)
	assert.Equal(t, time.Minute, cfg.Cache.NotebookTTL)
	assert.Equal(t, "generate-notebook-content", cfg.Generation.JobName)
}

func TestGetEnvAsDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getEnvAsDuration("SOME_TIMEOUT", 5*time.Second))
}
