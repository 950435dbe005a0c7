package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "sk***", RedactSecret("sk-live-abc123"))
	assert.Equal(t, "***", RedactSecret("pass"))
	assert.Equal(t, "***", RedactSecret(""))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t,
		"postgres://app:***@db:5432/metrics?sslmode=disable",
		RedactURL("postgres://app:hunter2@db:5432/metrics?sslmode=disable"))

	// URLs without credentials pass through untouched
	assert.Equal(t, "https://exports.example.com/report.csv",
		RedactURL("https://exports.example.com/report.csv"))
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey("snowflake_password"))
	assert.True(t, isSecretKey("webhook_secret"))
	assert.True(t, isSecretKey("API_KEY"))
	assert.False(t, isSecretKey("campaign_id"))
	assert.False(t, isSecretKey("platform"))
}
