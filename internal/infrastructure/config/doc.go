// Package config handles loading and validating pgcore configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Database passwords and the JWT secret should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - sync.alter drops every defined table; keep it off outside provisioning runs
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Host)
package config
