package config

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/models"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("apiBase", "https://discordapp.com/api")
	v.SetDefault("compress", true)
	v.SetDefault("queue", true)
	v.SetDefault("maxCachedMessages", cache.DefaultMaxMessages)
	v.SetDefault("statusAddress", "127.0.0.1:8090")
	v.SetDefault("logToFile", false)
	v.SetDefault("logLevel", "info")
	v.SetDefault("snowflakeWorkerID", 0)
	v.SetDefault("selfContained", true)
	v.SetDefault("archiveMessages", false)
}

// Load reads the JSON config file at path. Values missing from the file take
// the defaults, CHATAPP_ prefixed environment variables override both.
func Load(path string) (*models.ConfigFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("chatapp")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("couldn't read config file %s: %w", path, err)
	}

	var cfg models.ConfigFile
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *models.ConfigFile) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
