// Package config loads application settings with viper from defaults, an
// optional config.yaml and TASKFLOW_-prefixed environment variables, then
// validates them before any component is built.
package config
