package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"SV_APP_NAME":                os.Getenv("SV_APP_NAME"),
		"SV_APP_ENV":                 os.Getenv("SV_APP_ENV"),
		"SV_APP_PORT":                os.Getenv("SV_APP_PORT"),
		"SV_DATABASE_HOST":           os.Getenv("SV_DATABASE_HOST"),
		"SV_DATABASE_PORT":           os.Getenv("SV_DATABASE_PORT"),
		"SV_DATABASE_USER":           os.Getenv("SV_DATABASE_USER"),
		"SV_DATABASE_PASSWORD":       os.Getenv("SV_DATABASE_PASSWORD"),
		"SV_DATABASE_DBNAME":         os.Getenv("SV_DATABASE_DBNAME"),
		"SV_DATABASE_SSLMODE":        os.Getenv("SV_DATABASE_SSLMODE"),
		"SV_DATABASE_MAX_OPEN_CONNS": os.Getenv("SV_DATABASE_MAX_OPEN_CONNS"),
		"SV_DATABASE_MAX_IDLE_CONNS": os.Getenv("SV_DATABASE_MAX_IDLE_CONNS"),
		"SV_CHECKOUT_TRIAL_DURATION": os.Getenv("SV_CHECKOUT_TRIAL_DURATION"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "streamvault-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "streamvault", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "SV", cfg.Checkout.OrderCodePrefix)
		assert.Equal(t, 36*time.Hour, cfg.Checkout.TrialDuration)
	})

	t.Run("loads values from environment variables with SV prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("SV_APP_NAME", "test-app")
		os.Setenv("SV_APP_ENV", "testing")
		os.Setenv("SV_APP_PORT", "9000")
		os.Setenv("SV_DATABASE_HOST", "testdb.local")
		os.Setenv("SV_DATABASE_PORT", "5433")
		os.Setenv("SV_DATABASE_USER", "testuser")
		os.Setenv("SV_DATABASE_PASSWORD", "testpass")
		os.Setenv("SV_DATABASE_DBNAME", "testdb")
		os.Setenv("SV_DATABASE_SSLMODE", "require")
		os.Setenv("SV_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("SV_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("SV_CHECKOUT_TRIAL_DURATION", "48h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 48*time.Hour, cfg.Checkout.TrialDuration)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("SV_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("SV_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("SV_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("SV_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"SV_APP_ENV":               os.Getenv("SV_APP_ENV"),
		"SV_DATABASE_PASSWORD":     os.Getenv("SV_DATABASE_PASSWORD"),
		"SV_DATABASE_SSLMODE":      os.Getenv("SV_DATABASE_SSLMODE"),
		"SV_STRIPE_SECRET_KEY":     os.Getenv("SV_STRIPE_SECRET_KEY"),
		"SV_STRIPE_WEBHOOK_SECRET": os.Getenv("SV_STRIPE_WEBHOOK_SECRET"),
		"SV_MAILER_ENABLED":        os.Getenv("SV_MAILER_ENABLED"),
		"SV_MAILER_API_KEY":        os.Getenv("SV_MAILER_API_KEY"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("SV_APP_ENV", "production")
		os.Setenv("SV_DATABASE_PASSWORD", "secure-password")
		os.Setenv("SV_DATABASE_SSLMODE", "require")
		os.Setenv("SV_STRIPE_SECRET_KEY", "sk_live_x")
		os.Setenv("SV_STRIPE_WEBHOOK_SECRET", "whsec_x")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("SV_APP_ENV", "production")
		os.Setenv("SV_DATABASE_SSLMODE", "require")
		os.Setenv("SV_STRIPE_SECRET_KEY", "sk_live_x")
		os.Setenv("SV_STRIPE_WEBHOOK_SECRET", "whsec_x")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("SV_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires stripe secrets in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("SV_STRIPE_SECRET_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.secret_key is required in production")

		setValidProductionBase()
		os.Unsetenv("SV_STRIPE_WEBHOOK_SECRET")

		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.webhook_secret is required in production")
	})

	t.Run("requires mailer api key when mailer enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("SV_MAILER_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mailer.api_key is required")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", cfg.Addr())
}
