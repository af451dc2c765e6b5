package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBillingRules_IntegerAndFractionalRates(t *testing.T) {
	rules, err := ParseBillingRules("call:5:5, chat:1.5:1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int64(5000), rules["call"].RateMilli)
	assert.Equal(t, int64(5), rules["call"].MinimumBalance)
	assert.Equal(t, int64(1500), rules["chat"].RateMilli)
	assert.Equal(t, int64(1), rules["chat"].MinimumBalance)
}

func TestParseBillingRules_KindIsLowercased(t *testing.T) {
	rules, err := ParseBillingRules("CALL:2:0")
	require.NoError(t, err)
	_, ok := rules["call"]
	assert.True(t, ok)
}

func TestParseBillingRules_Malformed(t *testing.T) {
	for _, raw := range []string{"call:5", "call:x:5", "call:0:5", "call:5:-1", ":1:1", ","} {
		_, err := ParseBillingRules(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoad_EngineOverrides(t *testing.T) {
	t.Setenv("OTP_WINDOW", "5m")
	t.Setenv("MOOD_DAILY_LIMIT", "4")
	t.Setenv("BILLING_RULES", "video:3:10")
	t.Setenv("DEFAULT_TIMEZONE", "Asia/Kolkata")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.Engine.OTPWindow)
	assert.Equal(t, 30*time.Minute, cfg.Engine.TokenWindow)
	assert.Equal(t, 4, cfg.Engine.MoodDailyLimit)
	assert.Equal(t, "Asia/Kolkata", cfg.Engine.DefaultTimezone)
	require.Contains(t, cfg.Engine.BillingRules, "video")
	assert.NotContains(t, cfg.Engine.BillingRules, "call")
}

func TestLoad_BadBillingRulesFallBackToDefaults(t *testing.T) {
	t.Setenv("BILLING_RULES", "nonsense")
	cfg := Load()
	assert.Equal(t, DefaultEngine().BillingRules, cfg.Engine.BillingRules)
}

func TestLoad_OutOfRangeEngineValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("OTP_MAX_ATTEMPTS", "0")
	t.Setenv("MOOD_DAILY_LIMIT", "-2")
	t.Setenv("OTP_WINDOW", "-1m")
	t.Setenv("DEFAULT_TIMEZONE", "Mars/Olympus")
	t.Setenv("WALLET_MAX_RECHARGE", "-5")

	def := DefaultEngine()
	cfg := Load()
	assert.Equal(t, def.OTPMaxAttempts, cfg.Engine.OTPMaxAttempts)
	assert.Equal(t, def.MoodDailyLimit, cfg.Engine.MoodDailyLimit)
	assert.Equal(t, def.OTPWindow, cfg.Engine.OTPWindow)
	assert.Equal(t, def.DefaultTimezone, cfg.Engine.DefaultTimezone)
	assert.Equal(t, def.MaxRecharge, cfg.Engine.MaxRecharge)
}

func TestLoad_ZeroCapsStayDisabled(t *testing.T) {
	t.Setenv("WALLET_MAX_RECHARGE", "0")
	t.Setenv("WALLET_MAX_DEBIT_MINUTES", "0")
	t.Setenv("ENGINE_MAX_CONFLICT_RETRIES", "0")

	cfg := Load()
	assert.Zero(t, cfg.Engine.MaxRecharge)
	assert.Zero(t, cfg.Engine.MaxDebitMinutes)
	assert.Zero(t, cfg.Engine.MaxConflictRetries)
}
