package config

import (
	"fmt"
	"os"
	"strings"
)

// loadSecret returns the trimmed contents of file, which takes precedence
// over the inline value.
func loadSecret(name, value, file string) (string, error) {
	file = strings.TrimSpace(file)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	if secret == "" {
		if file != "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}
