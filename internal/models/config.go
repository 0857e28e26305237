package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Gateway     GatewayConfig
	Market      MarketConfig
	Maintenance MaintenanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
	PingTimeout time.Duration
}

// GatewayConfig holds settings for the single-writer work queue
type GatewayConfig struct {
	QueueSize int
}

// MarketConfig holds market-wide settings
type MarketConfig struct {
	Timezone    string
	CatalogFile string
}

// MaintenanceConfig holds background maintenance settings
type MaintenanceConfig struct {
	Interval           time.Duration
	QuotaRetentionDays int
	Enabled            bool
}
