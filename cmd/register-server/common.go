package main

import (
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/registre/internal/config"
	"github.com/BrandonDHaskell/registre/internal/logger"
)

// commonRun loads the configuration and builds the process logger.
func commonRun() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if globalFlags.logLevel != "" {
		cfg.LogLevel = globalFlags.logLevel
	}
	log := logger.New(programName, cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("env", cfg.Env).
		Str("backend", cfg.Backend).
		Str("namespace", cfg.Namespace).
		Msg("config loaded")
	return cfg, log, nil
}
