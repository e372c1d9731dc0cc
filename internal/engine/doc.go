// Package engine provides the asynchronous task execution engine. It owns
// the in-memory task registry, runs submitted work on background goroutines,
// bridges log emissions into per-task fan-out channels, and guarantees that
// every task reaches exactly one terminal state.
package engine
