// Package config handles configuration loading, parsing, and validation
// from environment variables and optional config files. It provides
// type-safe access to the settings the server, queue, speech provider, and
// storage layers need, keeping configuration details separate from
// business logic.
package config
