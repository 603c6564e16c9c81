// Package errors defines the failure taxonomy used across hgpack.
//
// Every failure is terminal. Errors are classified by code:
//
//   - CONFIGURATION: bad entry point or forced include list
//   - BACKEND: the packaging backend failed
//   - ENVIRONMENT: unsupported host platform
//
// ExitCode maps an error chain to the process exit status. Context
// cancellation maps to 2 regardless of code.
package errors
