package backend

import (
	"fmt"
	"time"

	"spendwise/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:            backendType,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		PostgresDSN:     appConfig.PostgresDSN,
		MongoURI:        appConfig.MongoURI,
		MongoDatabase:   appConfig.MongoDatabase,
		MongoCollection: appConfig.MongoCollection,
		ConnectTimeout:  30 * time.Second,
		CacheSize:       appConfig.CacheSize,
		CacheTTL:        appConfig.CacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case MongoBackend:
		if c.MongoURI == "" {
			return fmt.Errorf("MongoDB URI is required for mongo backend")
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			return fmt.Errorf("MongoDB database and collection are required for mongo backend")
		}
	case MemoryBackend:
		// nothing to configure
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
