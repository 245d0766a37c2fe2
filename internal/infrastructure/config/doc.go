// Package config handles loading and validating DevBind configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with DEVBIND_* environment variables
//   - Validation of required fields (all errors are reported together)
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - String() redacts secrets so the configuration can be logged
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Service.Name)
package config
