// Package config defines the settings used by the alert-hub binaries and
// provides helpers to load, validate, save and watch them in YAML format.
//
// Selected settings can be overridden with ALERT_HUB_* environment variables,
// optionally loaded from a .env file.
package config
