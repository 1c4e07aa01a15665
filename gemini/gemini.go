// Package gemini implements [pipeline.Writer] over the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK's streaming iterator, emitting
// text chunks as they arrive so the pipeline can report generation
// progress, and maps API quota exhaustion onto the session error taxonomy.
package gemini

const (
	defaultModel     = "gemini-3.1-pro-preview"
	defaultMaxTokens = 16384
)
