// Package config defines the Switchboard configuration schema and its
// loading pipeline: YAML file, applied defaults, environment variable
// overrides (SWITCHBOARD_*), and validation. A fsnotify-based watcher
// supports hot reload of the model catalog without a restart.
package config
