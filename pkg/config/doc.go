// Package config provides configuration loading, defaults and validation
// for the Callisto telemetry sidecar.
//
// Configuration is a YAML file with one section per concern:
//
//	server:
//	  listen_address: "127.0.0.1:8088"
//	upstream:
//	  base_url: "http://127.0.0.1:4000"
//	telemetry:
//	  enabled: true
//	  sinks:
//	    console:
//	      enabled: false
//	    logger:
//	      enabled: true
//	    sqlite:
//	      enabled: true
//	      path: "data/telemetry.db"
//	aliases:
//	  path: "models.yaml"
//	  watch: true
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Loading
//
// LoadConfig reads a file, applies defaults and validates:
//
//	cfg, err := config.LoadConfig("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// LoadConfigWithEnvOverrides additionally honors CALLISTO_SECTION_FIELD
// environment variables (e.g. CALLISTO_SERVER_LISTEN_ADDRESS), which take
// precedence over file values.
//
// # Validation
//
// Validate collects all problems into a single ValidationError listing the
// offending fields, so a broken deployment reports every mistake at once
// instead of one per restart.
package config
