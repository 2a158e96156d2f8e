package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvMaxFPS        = "CVERLAY_MAX_FPS"
	EnvAppMaxFPS     = "CVERLAY_APP_MAX_FPS"
	EnvHardwareAccel = "CVERLAY_HARDWARE_ACCEL"
	EnvDebug         = "CVERLAY_DEBUG"
	EnvDashboard     = "CVERLAY_DASHBOARD"
)

// LoadDotenv loads variables from the given .env files without overriding
// variables already set. Missing files are ignored.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides c with CVERLAY_* variables from the process
// environment. Malformed values fail with scan.ErrConfig.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvMaxFPS); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return scan.ConfigError("%s=%q: %v", EnvMaxFPS, v, err)
		}
		c.MaxFPS = f
	}
	if v, ok := os.LookupEnv(EnvAppMaxFPS); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return scan.ConfigError("%s=%q: %v", EnvAppMaxFPS, v, err)
		}
		c.AppMaxFPS = f
	}
	if v, ok := os.LookupEnv(EnvHardwareAccel); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scan.ConfigError("%s=%q: %v", EnvHardwareAccel, v, err)
		}
		c.HardwareAccel = b
	}
	if v, ok := os.LookupEnv(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scan.ConfigError("%s=%q: %v", EnvDebug, v, err)
		}
		c.Debug = b
	}
	if v, ok := os.LookupEnv(EnvDashboard); ok {
		c.Dashboard = v
	}
	return nil
}
