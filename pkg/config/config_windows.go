//go:build windows

package config

import (
	"os"
	"path/filepath"
)

var (
	DefaultConfigPath         = filepath.Join(os.Getenv("AppData"), "fgfinalize", "config.yml")
	DefaultQuarantineLocation = filepath.Join(os.Getenv("AppData"), "fgfinalize", "quarantine")
	DefaultJournalLocation    = filepath.Join(os.Getenv("AppData"), "fgfinalize", "journal.db")
)

func GetConfigFile() (config string, err error) {
	config = DefaultConfigPath
	home := os.Getenv("APPDATA")
	cfg := filepath.Join(home, "fgfinalize", "config.yml")
	if _, err := os.Stat(cfg); err == nil {
		return cfg, nil
	}
	if _, err := os.Stat(config); err != nil {
		_, err = os.Create(filepath.Clean(config))
		if err != nil {
			return config, err
		}
	}
	return
}
