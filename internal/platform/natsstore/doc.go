// Package natsstore persists generated audio in a NATS JetStream object
// store bucket.
//
// Audio objects are addressed as nats://<bucket>/<object> URLs; those URLs
// are what gets written onto speech tasks and scheme documents. Consumers
// resolve them back through Download.
package natsstore
