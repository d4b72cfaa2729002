// Package config loads and validates hstream.json, the project
// configuration file read by the hstream command.
package config
