// Package worker consumes speech generation jobs from the queue.
//
// For each delivery it synthesizes one segment's audio, uploads it to the
// object store, records the result on the task row, writes the audio URL
// into the scheme document, and publishes a completion event. A separate
// error handler observes jobs whose retry budget is exhausted and marks
// their tasks terminally failed.
package worker
