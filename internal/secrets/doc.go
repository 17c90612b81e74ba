// Package secrets resolves configuration values that may reference secrets.
//
// A value is one of:
//
//	"literal"        returned verbatim (trimmed)
//	"$NAME"          read from the environment variable NAME
//	"$(command)"     trimmed stdout of `sh -c command`
//
// Blank values resolve to "" without touching the environment or spawning a
// process. Resolution is lazy: callers resolve a value at the point they
// need it, so a missing secret only fails the operation that required it.
package secrets
