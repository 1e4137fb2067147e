// Package file stores docket's configuration as a TOML file.
//
// Values are addressed by dotted keys such as "chunking.size". ${VAR} and
// ${VAR:-default} references are expanded from the environment before the
// file is decoded, and LoadDotEnv can seed that environment from .env files.
package file
