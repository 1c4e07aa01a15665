package scribe

import (
	"fmt"
	"net/url"
	"strings"
)

// Request is the immutable input keying one generation session.
type Request struct {
	TargetRef  string // repository reference: "owner/name" or absolute http(s) URL
	TemplateID *int   // nil = producer default template
	Title      string // optional; empty = derived from the artifact
	Credential string // opaque bearer token; issuance and refresh live elsewhere
}

// Validate checks locally detectable constraints on Request. A missing or
// syntactically invalid TargetRef fails here, before any network activity.
func (r Request) Validate() error {
	ref := strings.TrimSpace(r.TargetRef)
	if ref == "" {
		return fmt.Errorf("target ref is required: %w", ErrValidation)
	}
	if ref != r.TargetRef || strings.ContainsAny(ref, " \t") {
		return fmt.Errorf("target ref %q contains whitespace: %w", r.TargetRef, ErrValidation)
	}
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || strings.Trim(u.Path, "/") == "" {
			return fmt.Errorf("target ref %q is not a valid repository URL: %w", r.TargetRef, ErrValidation)
		}
		return r.validateTemplateID()
	}
	for _, part := range strings.Split(ref, "/") {
		if part == "" {
			return fmt.Errorf("target ref %q has an empty path segment: %w", r.TargetRef, ErrValidation)
		}
	}
	if !strings.Contains(ref, "/") {
		return fmt.Errorf("target ref %q must name an owner and a repository: %w", r.TargetRef, ErrValidation)
	}
	return r.validateTemplateID()
}

func (r Request) validateTemplateID() error {
	if r.TemplateID != nil && *r.TemplateID < 0 {
		return fmt.Errorf("template id must be non-negative, got %d: %w", *r.TemplateID, ErrValidation)
	}
	return nil
}
