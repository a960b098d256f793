// Package config defines the application configuration structure and
// loading logic. Configuration is read from an optional YAML file and from
// environment variables with the CLIPPINGS_ prefix, then validated before
// use so misconfiguration fails fast at startup.
package config
