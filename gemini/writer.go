package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/pipeline"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ pipeline.Writer = (*Writer)(nil)

// Writer implements [pipeline.Writer] for the Gemini API.
type Writer struct {
	client *genai.Client
	model  string
}

// Option configures a [Writer].
type Option func(*Writer)

// WithModel sets the model ID. Default is gemini-3.1-pro-preview.
func WithModel(model string) Option {
	return func(w *Writer) { w.model = model }
}

// New creates a Gemini [Writer] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Writer, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	w := &Writer{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Write streams the document from the model, emitting each text chunk as
// it arrives and returning the assembled artifact.
func (w *Writer) Write(ctx context.Context, p pipeline.Prompt, emit func(chunk string)) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: BuildPrompt(p)}},
	}}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: defaultMaxTokens,
	}

	var doc strings.Builder
	for resp, err := range w.client.Models.GenerateContentStream(ctx, w.model, contents, config) {
		if err != nil {
			return "", writeError(err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		doc.WriteString(chunk)
		if emit != nil {
			emit(chunk)
		}
	}
	if doc.Len() == 0 {
		return "", errors.New("gemini: model returned no content")
	}
	return doc.String(), nil
}

// writeError maps API failures. Quota exhaustion becomes a structured
// session error so it reaches the consumer as INSUFFICIENT_TOKENS instead
// of a generic analysis failure.
func writeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &scribe.SessionError{
			Kind:      scribe.KindInsufficientTokens,
			Message:   "model token quota exhausted",
			Timestamp: time.Now(),
		}
	}
	return fmt.Errorf("gemini: %w", err)
}

// BuildPrompt renders the writing instruction for a session prompt.
// Exported for testing.
func BuildPrompt(p pipeline.Prompt) string {
	var b strings.Builder
	b.WriteString("Write a complete markdown document for the repository ")
	b.WriteString(p.TargetRef)
	b.WriteString(", following this template:\n\n")
	b.WriteString(p.Template)
	if p.Title != "" {
		b.WriteString("\n\nUse the title: ")
		b.WriteString(p.Title)
	}

	b.WriteString("\n\nRepository summary:\n")
	fmt.Fprintf(&b, "- %d files\n", p.Analysis.FileCount)
	if len(p.Analysis.Languages) > 0 {
		langs := make([]string, 0, len(p.Analysis.Languages))
		for lang := range p.Analysis.Languages {
			langs = append(langs, lang)
		}
		sort.Slice(langs, func(i, j int) bool {
			li, lj := p.Analysis.Languages[langs[i]], p.Analysis.Languages[langs[j]]
			if li != lj {
				return li > lj
			}
			return langs[i] < langs[j]
		})
		b.WriteString("- languages: ")
		for i, lang := range langs {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%d)", lang, p.Analysis.Languages[lang])
		}
		b.WriteByte('\n')
	}
	if len(p.Analysis.TreeSample) > 0 {
		b.WriteString("- tree sample:\n")
		for _, path := range p.Analysis.TreeSample {
			fmt.Fprintf(&b, "  - %s\n", path)
		}
	}
	for name, content := range sortedKeyFiles(p.Analysis.KeyFiles) {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", name, content)
	}
	b.WriteString("\nReturn only the finished markdown document.")
	return b.String()
}

// sortedKeyFiles yields key files in name order for a stable prompt.
func sortedKeyFiles(files map[string]string) func(func(string, string) bool) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(yield func(string, string) bool) {
		for _, name := range names {
			if !yield(name, files[name]) {
				return
			}
		}
	}
}
