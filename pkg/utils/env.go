package utils

import "os"

// ParseWithFallback reads an environment variable, falling back to the given
// default when it is unset or empty. It covers the few knobs that live
// outside the yaml config, like CONFIG_PATH itself.
func ParseWithFallback(envName, fallback string) string {
	if value := os.Getenv(envName); value != "" {
		return value
	}

	return fallback
}
