// Package config handles loading and validating the item provider
// configuration.
//
// Configuration comes from a YAML file on top of built-in defaults, with
// GRAYLOGIC_* environment variables applied last. Validate reports every
// problem at once rather than stopping at the first.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Items.File)
package config
