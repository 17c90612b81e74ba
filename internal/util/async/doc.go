// Package async provides bounded parallel task execution with per-task
// error collection.
//
// [RunBounded] executes independent operations concurrently, never more
// than a given number at once, and reports the outcome of every task in
// input order. It backs the concurrent per-host fan-out in the remote
// package.
package async
