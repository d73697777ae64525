// Package config handles configuration loading for tutormate.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from TUTORMATE_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/tutormate/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	completion:
//	  api_key: "${GROQ_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  session_duration: "24h"
//	completion:
//	  timeout: "60s"
//
// Supported units: ns, us, ms, s, m, h
package config
