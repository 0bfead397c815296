// Package operation ties resolution, scheduling, and materialization
// together into the single caller-facing download operation.
package operation
