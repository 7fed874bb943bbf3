package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from configName (without extension) found under
// configPath, ".", or "./config", then from environment variables, with
// LUST_-prefixed env vars taking precedence over file values for any key.
func Load(configPath, configName string) (Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("LUST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_serving_path", "/images")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "lustd")
	v.SetDefault("backend.filesystem.root_dir", "./data/variants")
	v.SetDefault("backend.scylla.consistency", "QUORUM")
	v.SetDefault("backend.scylla.connect_timeout_seconds", 5)
	v.SetDefault("backend.scylla.timeout_seconds", 10)
	v.SetDefault("backend.blobstorage.region", "us-east-1")
	v.SetDefault("backend.blobstorage.use_path_style", true)

	v.BindEnv("backend.blobstorage.endpoint", "LUST_S3_ENDPOINT")
	v.BindEnv("backend.blobstorage.bucket", "LUST_S3_BUCKET")
	v.BindEnv("backend.blobstorage.access_key_id", "LUST_S3_ACCESS_KEY_ID")
	v.BindEnv("backend.blobstorage.secret_access_key", "LUST_S3_SECRET_ACCESS_KEY")
	v.BindEnv("backend.scylla.hosts", "LUST_SCYLLA_HOSTS")
	v.BindEnv("backend.scylla.keyspace", "LUST_SCYLLA_KEYSPACE")
}
