package backend

import (
	"fmt"

	"budget/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type: backendType,

		URL:     appConfig.LedgerURL,
		Timeout: appConfig.LedgerTimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.URL == "" {
			return fmt.Errorf("ledger URL is required for http backend")
		}
	case AMQPBackend:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp backend")
		}
		if c.AMQPExchange == "" {
			return fmt.Errorf("AMQP exchange is required for amqp backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets backend")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, SheetsBackend, AMQPBackend}
}
