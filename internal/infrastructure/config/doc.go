// Package config handles loading and validating domotic node configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (DOMOTIC_*)
//   - Validation of required fields
//   - Default value handling (port 9999, 16 directory slots, 5s relay timeout)
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
//	fmt.Println(cfg.ListenAddr())
package config
