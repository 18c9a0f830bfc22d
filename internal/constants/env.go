// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvPrefix is the prefix viper uses for every configuration key override
	EnvPrefix = "JOBDESK"

	// EnvConfigFile points at an explicit configuration file
	EnvConfigFile = "JOBDESK_CONFIG"

	// EnvServerAddress overrides the backend base URL for the CLI
	EnvServerAddress = "JOBDESK_SERVER_ADDRESS"

	// EnvAPIToken is the bearer token sent with every backend request
	EnvAPIToken = "JOBDESK_API_TOKEN"
)
