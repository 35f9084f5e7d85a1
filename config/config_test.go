package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "postgres", cfg.SnapshotDriver)
	assert.Equal(t, []int{1, 3, 7, 14, 30}, cfg.ConversionWindows)
	assert.Equal(t, 0.25, cfg.GatewayPriceQuantile)
	assert.Equal(t, 0.75, cfg.MentorshipPriceQuantile)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "0 2 * * *", cfg.PipelineSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SNAPSHOT_DRIVER", "sqlite3")
	t.Setenv("CONVERSION_WINDOWS", "7, 30")
	t.Setenv("REPORT_EMAIL_TO", "a@x.com, b@x.com,")
	t.Setenv("MAX_LLM_ROWS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "sqlite3", cfg.SnapshotDriver)
	assert.Equal(t, []int{7, 30}, cfg.ConversionWindows)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.ReportEmailTo)
	assert.Equal(t, 200, cfg.MaxLLMRows) // bad value keeps the default
}

func TestValidate(t *testing.T) {
	t.Run("Success - defaults are valid", func(t *testing.T) {
		require.NoError(t, Load().Validate())
	})

	t.Run("Error - unknown snapshot driver", func(t *testing.T) {
		cfg := Load()
		cfg.SnapshotDriver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Error - quantiles out of order", func(t *testing.T) {
		cfg := Load()
		cfg.GatewayPriceQuantile = 0.9
		cfg.MentorshipPriceQuantile = 0.5
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quantile")
	})

	t.Run("Error - zero batch size", func(t *testing.T) {
		cfg := Load()
		cfg.LLMBatchSize = 0
		assert.Error(t, cfg.Validate())
	})
}
