// Package speech defines the boundary between the application core and
// external text-to-speech providers.
//
// The Synthesizer interface abstracts a single provider; the Registry maps
// the provider names recorded on speech tasks to live Synthesizer instances
// so a batch can keep using the provider it was created with even after the
// default changes.
package speech
