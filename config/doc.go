// Package config loads application settings with viper.
//
// Settings come from a YAML, TOML or JSON file and can be overridden by
// environment variables named after the key with a RAPPORT_ prefix, for
// example RAPPORT_AI_API_KEY or RAPPORT_STORAGE_BACKEND. Secrets may be
// kept in files referenced by the *_file keys.
package config
