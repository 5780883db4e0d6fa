// Package queue wraps the Redis-backed job queue used for speech generation.
//
// It owns the job payload format, queue and task-type names, dedup key
// construction, and the retry policy. Batch operations enqueue one job per
// speech task; the worker consumes them through the server this package
// configures. Rate limit rejections are treated as backpressure rather than
// failures, so they never consume retry attempts.
package queue
