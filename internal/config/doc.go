// Package config provides centralized configuration management for the
// collections dashboard.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Default() values
//	2. A YAML file (config.yaml, configs/config.yaml or COLLECT_CONFIG_FILE)
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern COLLECT_<SECTION>_<FIELD>:
//
//	COLLECT_SERVER_PORT=8080
//	COLLECT_SOURCE_KIND=sheets
//	COLLECT_SOURCE_SPREADSHEET_ID=1AbC...
//	COLLECT_SOURCE_EXCLUDED=Master,Summary
//	COLLECT_CACHE_BACKEND=redis
//	COLLECT_CACHE_REDIS_ADDR=localhost:6379
//	COLLECT_AUTH_ADMIN_PASSWORD_HASH='$2a$10$...'
//
// # Paths
//
// Relative file paths (credentials, workbook, log file) are anchored at the
// executable directory, see GetPaths.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
