package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Snapshot the process env touched here and put it back afterwards.
	originalEnv := map[string]string{
		"INVOICING_APP_NAME":                os.Getenv("INVOICING_APP_NAME"),
		"INVOICING_APP_ENV":                 os.Getenv("INVOICING_APP_ENV"),
		"INVOICING_APP_PORT":                os.Getenv("INVOICING_APP_PORT"),
		"INVOICING_DATABASE_HOST":           os.Getenv("INVOICING_DATABASE_HOST"),
		"INVOICING_DATABASE_PORT":           os.Getenv("INVOICING_DATABASE_PORT"),
		"INVOICING_DATABASE_USER":           os.Getenv("INVOICING_DATABASE_USER"),
		"INVOICING_DATABASE_PASSWORD":       os.Getenv("INVOICING_DATABASE_PASSWORD"),
		"INVOICING_DATABASE_DBNAME":         os.Getenv("INVOICING_DATABASE_DBNAME"),
		"INVOICING_DATABASE_SSLMODE":        os.Getenv("INVOICING_DATABASE_SSLMODE"),
		"INVOICING_DATABASE_MAX_OPEN_CONNS": os.Getenv("INVOICING_DATABASE_MAX_OPEN_CONNS"),
		"INVOICING_DATABASE_MAX_IDLE_CONNS": os.Getenv("INVOICING_DATABASE_MAX_IDLE_CONNS"),
		"INVOICING_BILLING_FEE_PERCENTAGE":  os.Getenv("INVOICING_BILLING_FEE_PERCENTAGE"),
		"INVOICING_BILLING_RUN_HOUR":        os.Getenv("INVOICING_BILLING_RUN_HOUR"),
		"INVOICING_CACHE_BACKEND":           os.Getenv("INVOICING_CACHE_BACKEND"),
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

		assert.Equal(t, "invoicing-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "invoicing", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.Equal(t, 2, cfg.Billing.RunHour)
		assert.Equal(t, 0, cfg.Billing.RunMinute)
		assert.Equal(t, 1.0, cfg.Billing.FeePercentage)
		assert.Equal(t, 7, cfg.Billing.ReminderDaysBefore)
		assert.Equal(t, 7, cfg.Billing.ReminderDaysAfter)

		assert.Equal(t, "memory", cfg.Cache.Backend)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	})

	t.Run("loads values from environment variables with INVOICING prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_APP_NAME", "billing-under-test")
		os.Setenv("INVOICING_APP_ENV", "testing")
		os.Setenv("INVOICING_APP_PORT", "9180")
		os.Setenv("INVOICING_DATABASE_HOST", "db.invoicing.test")
		os.Setenv("INVOICING_DATABASE_PORT", "5433")
		os.Setenv("INVOICING_DATABASE_USER", "testuser")
		os.Setenv("INVOICING_DATABASE_PASSWORD", "testpass")
		os.Setenv("INVOICING_DATABASE_DBNAME", "testdb")
		os.Setenv("INVOICING_DATABASE_SSLMODE", "require")
		os.Setenv("INVOICING_BILLING_FEE_PERCENTAGE", "2.5")
		os.Setenv("INVOICING_BILLING_RUN_HOUR", "4")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "billing-under-test", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9180", cfg.App.Port)
		assert.Equal(t, "db.invoicing.test", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 2.5, cfg.Billing.FeePercentage)
		assert.Equal(t, 4, cfg.Billing.RunHour)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("INVOICING_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// An explicit zero counts as unset and falls back to the default of 25.
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates billing run hour range", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_BILLING_RUN_HOUR", "25")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.run_hour")
	})

	t.Run("validates fee percentage range", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_BILLING_FEE_PERCENTAGE", "150")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.fee_percentage")
	})

	t.Run("validates cache backend", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_CACHE_BACKEND", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"INVOICING_APP_ENV":           os.Getenv("INVOICING_APP_ENV"),
		"INVOICING_DATABASE_PASSWORD": os.Getenv("INVOICING_DATABASE_PASSWORD"),
		"INVOICING_DATABASE_SSLMODE":  os.Getenv("INVOICING_DATABASE_SSLMODE"),
		"INVOICING_SWAGGER_ENABLED":   os.Getenv("INVOICING_SWAGGER_ENABLED"),
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

	t.Run("requires database password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects sslmode disable in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_APP_ENV", "production")
		os.Setenv("INVOICING_DATABASE_PASSWORD", "secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("rejects unprotected swagger in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("INVOICING_APP_ENV", "production")
		os.Setenv("INVOICING_DATABASE_PASSWORD", "secret")
		os.Setenv("INVOICING_DATABASE_SSLMODE", "require")
		os.Setenv("INVOICING_SWAGGER_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "swagger")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "invoicing",
		SSLMode:  "disable",
	}

	dsn := d.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "/invoicing")
	assert.Contains(t, dsn, "sslmode=disable")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", r.Addr())
}
