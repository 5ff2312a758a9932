// Package shared holds helpers used by more than one package. Its testutil
// subpackage provides a capturing slog handler and collections fixtures for
// tests.
package shared
