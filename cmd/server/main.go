package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sebadev7/dodi-server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	positionTolerance = configVar[float64]{
		envKey:       "SERVER_POSITION_TOLERANCE",
		flagKey:      "position-tolerance",
		defaultValue: 0.5,
	}
	authorityPromote = configVar[bool]{
		envKey:       "SERVER_AUTHORITY_PROMOTE",
		flagKey:      "authority-promote",
		defaultValue: false,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Float64(positionTolerance.flagKey, positionTolerance.defaultValue, "Consensus position tolerance in seconds")
	pflag.Bool(authorityPromote.flagKey, authorityPromote.defaultValue, "Promote a remaining member when the authority leaves")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(positionTolerance.flagKey, positionTolerance.envKey)
	viper.BindEnv(authorityPromote.flagKey, authorityPromote.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(positionTolerance.flagKey, positionTolerance.defaultValue)
	viper.SetDefault(authorityPromote.flagKey, authorityPromote.defaultValue)

	config := &app.AppConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		PositionTolerance: viper.GetFloat64(positionTolerance.flagKey),
		AuthorityPromote:  viper.GetBool(authorityPromote.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
