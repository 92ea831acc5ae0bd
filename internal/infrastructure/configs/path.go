package configs

import (
	"os"

	"github.com/hilthontt/zeroroom/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location. An empty result
// means no file was found and Load falls back to defaults.
func DetermineConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if p := env.GetString("ZERO_ROOM_CONFIG", ""); p != "" {
		return p
	}

	candidates := []string{
		"./config.yaml",
		"./config.yml",
		"../../config.yaml", // keep for local dev
		"/etc/zeroroom/config.yaml",
		"/app/config.yaml", // common in Docker
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
