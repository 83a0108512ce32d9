package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vaultify/internal/flagx"
	"github.com/spf13/viper"
)

const envPrefix = "VAULTIFY"

// parseFile overlays the config file named by -c/-config and VAULTIFY_*
// environment variables on top of the values already in config. The file
// format is picked from its extension (yaml, json, toml).
func parseFile(config *Config, args []string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	seedDefaults(v, config)

	if path := flagx.ConfigFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// seedDefaults registers every current value so that AutomaticEnv can find
// keys that are absent from the file.
func seedDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("endpoint_addr_grpc", c.EndpointAddrGRPC)
	v.SetDefault("endpoint_addr_http", c.EndpointAddrHTTP)
	v.SetDefault("public_base_url", c.PublicBaseURL)
	v.SetDefault("database_dsn", c.DatabaseDSN)
	v.SetDefault("secret_key", c.SecretKey)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("shutdown_timeout", c.ShutdownTimeout)

	v.SetDefault("blob_driver", c.BlobDriver)
	v.SetDefault("s3_root_user", c.S3RootUser)
	v.SetDefault("s3_root_password", c.S3RootPassword)
	v.SetDefault("s3_bucket", c.S3Bucket)
	v.SetDefault("s3_region", c.S3Region)
	v.SetDefault("s3_base_endpoint", c.S3BaseEndpoint)

	v.SetDefault("token_store_driver", c.TokenStoreDriver)
	v.SetDefault("redis_addr", c.RedisAddr)
	v.SetDefault("redis_password", c.RedisPassword)
	v.SetDefault("redis_db", c.RedisDB)
	v.SetDefault("presign_ttl", c.PresignTTL)
	v.SetDefault("token_sweep_interval", c.TokenSweepInterval)

	v.SetDefault("idempotency_driver", c.IdempotencyDriver)
	v.SetDefault("badger_path", c.BadgerPath)
	v.SetDefault("idempotency_retention", c.IdempotencyRetention)
	v.SetDefault("idempotency_sweep_interval", c.IdempotencySweepInterval)

	for name, class := range c.RateLimits {
		v.SetDefault("rate_limits."+name+".capacity", class.Capacity)
		v.SetDefault("rate_limits."+name+".window", class.Window)
	}
	v.SetDefault("rate_limit_idle_ttl", c.RateLimitIdleTTL)
}
