package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Config carries everything the reconciler run needs, assembled once at
// startup so the rest of the program never touches the process environment.
type Config struct {
	PrimaryHandle        string `validate:"required"`
	PrimaryAppPassword   string `validate:"required"`
	SecondaryHandle      string `validate:"required"`
	SecondaryAppPassword string `validate:"required"`

	PDSHost string `validate:"required,url"`
}

var envNames = map[string]string{
	"PrimaryHandle":        "ACCOUNT_A_HANDLE",
	"PrimaryAppPassword":   "ACCOUNT_A_APP_PASSWORD",
	"SecondaryHandle":      "ACCOUNT_B_HANDLE",
	"SecondaryAppPassword": "ACCOUNT_B_APP_PASSWORD",
	"PDSHost":              "PDS_HOST",
}

// Load reads the configuration from the environment, after a best-effort
// .env load for local runs.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process environment...")
	}

	viper.AutomaticEnv()
	viper.SetDefault("PDS_HOST", "https://bsky.social")

	cfg := &Config{
		PrimaryHandle:        viper.GetString("ACCOUNT_A_HANDLE"),
		PrimaryAppPassword:   viper.GetString("ACCOUNT_A_APP_PASSWORD"),
		SecondaryHandle:      viper.GetString("ACCOUNT_B_HANDLE"),
		SecondaryAppPassword: viper.GetString("ACCOUNT_B_APP_PASSWORD"),
		PDSHost:              viper.GetString("PDS_HOST"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			name := lo.ValueOr(envNames, fields[0].StructField(), fields[0].StructField())
			if fields[0].Tag() == "required" {
				return nil, fmt.Errorf("missing environment variable: %s", name)
			}
			return nil, fmt.Errorf("invalid value for %s: %v", name, fields[0].Value())
		}
		return nil, err
	}

	return cfg, nil
}
