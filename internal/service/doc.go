// Package service holds the application use cases: scheme registration,
// batch orchestration (create, selective update, selective retry), document
// audio writes, and scheme state aggregation.
//
// Services receive their collaborators through constructors: repository
// adapters over internal/store, the job enqueuer and cleaner from
// internal/queue, the keyed lock that serializes per-scheme mutations, and
// the event emitter the aggregator listens on. Store errors are wrapped in
// service error types before they reach the API layer; transactional
// boundaries live here, not in the handlers.
package service
