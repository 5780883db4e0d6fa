// Package events defines the in-process notification bus for the speech
// pipeline. Workers and the batch aggregator publish events when tasks and
// batches settle; interested components register handlers at startup.
//
// Payloads are carried as raw JSON so the envelope stays stable while event
// types evolve independently.
package events
