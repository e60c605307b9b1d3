// Package config loads, normalizes, and validates sdpublish configuration.
//
// Configuration is TOML. Load resolves an explicit path first, then
// ~/.config/sdpublish/config.toml, then ./sdpublish.toml, falling back to the
// repository defaults when no file exists. Credentials may also come from the
// SDPUBLISH_* environment variables so secrets stay out of the file.
//
// Validate only checks structural correctness; commands that talk to the
// server additionally call ValidateServerURL and ValidateCredentials.
package config
