// Package common holds the configuration and logging setup shared by the
// engine and the CLI.
package common
