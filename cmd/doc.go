// Package cmd implements the command-line interface for jsonq. Every command
// builds a fresh in-process engine from the flags, so stores live only for the
// duration of one invocation.
//
// The package is organized into several subpackages:
//
//   - exec: Run request documents (arguments, a file or stdin) and print the responses
//   - bench: Measure save/fetch/list throughput of a provider
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See jsonq -help for a list of all commands.
package cmd
