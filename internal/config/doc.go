// Package config loads and validates Openmic's TOML configuration.
//
// Load resolves the config file (explicit path, then
// ~/.config/openmic/config.toml, then a project-local openmic.toml), applies
// repository defaults, expands and normalizes every path field, and validates
// the result. Stage progress spans and deadlines live here so pipeline tuning
// never requires orchestration changes.
//
// CreateSample writes the embedded sample file for `openmic config init`.
package config
