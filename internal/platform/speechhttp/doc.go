// Package speechhttp implements the speech.Synthesizer interface against an
// HTTP text-to-speech service.
//
// The provider contract: POST /v1/generate/speech with a JSON body returns
// raw WAV audio on success, or a structured JSON error on failure. GET
// /health reports availability.
package speechhttp
