// Package config provides centralized configuration management for the dashboard.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (config.yaml or configs/config.yaml)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COVIDPULSE_<SECTION>_<FIELD>:
//
//	COVIDPULSE_SERVER_PORT=8080
//	COVIDPULSE_DATASET_SOURCE=https://example.org/countries-aggregated.csv
//	COVIDPULSE_DATASET_MIN_CONFIRMED=100
//	COVIDPULSE_ANIMATION_INTERVAL=800ms
//	COVIDPULSE_LOGGING_LEVEL=debug
//
// # Path Management
//
// Paths resolves data, export, capture and log directories relative to the
// executable location:
//
//	paths, err := config.GetPaths()
//	source := paths.Resolve(cfg.Dataset.Source)
package config
