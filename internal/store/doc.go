// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic: the orchestration and aggregation rules
// work against SchemeStore and SpeechTaskStore, independent of the
// specific database technology behind them.
package store
