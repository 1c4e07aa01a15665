package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/metrics"
	"github.com/scribehq/scribe/sse"
)

// handleGenerate runs one generation session over one connection.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := s.cfg.Logger.With().Str("session_id", uuid.NewString()).Logger()

	cred := credentialFrom(r)
	if err := s.cfg.Verifier.Verify(r.Context(), cred); err != nil {
		metrics.Rejected("auth")
		logger.Warn().Msg("rejected: missing or unknown credential")
		reject(w, http.StatusUnauthorized, &scribe.SessionError{
			Kind:      scribe.KindValidation,
			Message:   "missing or unknown credential",
			Timestamp: time.Now(),
		})
		return
	}

	req, err := parseRequest(r, cred)
	if err != nil {
		metrics.Rejected("validation")
		logger.Warn().Err(err).Msg("rejected: invalid request")
		reject(w, http.StatusBadRequest, &scribe.SessionError{
			Kind:      scribe.KindValidation,
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	if remaining, ok := s.quota.Spend(cred); !ok {
		metrics.Rejected("quota")
		logger.Warn().Dur("time_remaining", remaining).Msg("rejected: token balance exhausted")
		reject(w, http.StatusForbidden, &scribe.SessionError{
			Kind:      scribe.KindInsufficientTokens,
			Message:   "generation token balance exhausted",
			Details:   map[string]any{"time_remaining": int(remaining.Seconds())},
			Timestamp: time.Now(),
		})
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		logger.Error().Err(err).Msg("streaming unsupported")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	metrics.SessionStarted()
	start := time.Now()
	logger.Info().Str("target_ref", req.TargetRef).Msg("session started")

	report := func(p scribe.Progress) {
		metrics.StageReached(p.Stage)
		if err := sw.Progress(p); err != nil {
			logger.Debug().Err(err).Msg("progress frame dropped")
		}
	}

	artifact, err := s.cfg.Generator.Generate(r.Context(), req, report)

	// A disconnected consumer terminates the session; nothing may be
	// emitted after cancellation is detected.
	if r.Context().Err() != nil {
		metrics.SessionCancelled(time.Since(start))
		logger.Info().Msg("session cancelled by consumer")
		return
	}
	if err != nil {
		se := asSessionError(err, logger)
		metrics.SessionFailed(se.Kind, time.Since(start))
		logger.Warn().Str("kind", string(se.Kind)).Str("message", se.Message).Msg("session failed")
		_ = sw.Error(se)
		return
	}

	if err := sw.Complete(artifact); err != nil {
		metrics.SessionCancelled(time.Since(start))
		logger.Info().Err(err).Msg("completion frame dropped")
		return
	}
	metrics.SessionCompleted(time.Since(start))
	logger.Info().Dur("duration", time.Since(start)).Msg("session completed")
}

// parseRequest builds a validated scribe.Request from query parameters.
func parseRequest(r *http.Request, cred string) (scribe.Request, error) {
	q := r.URL.Query()
	req := scribe.Request{
		TargetRef:  q.Get("repo_url"),
		Title:      q.Get("title"),
		Credential: cred,
	}
	if raw := q.Get("template_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return scribe.Request{}, errors.New("template_id must be an integer")
		}
		req.TemplateID = &id
	}
	if err := req.Validate(); err != nil {
		return scribe.Request{}, err
	}
	return req, nil
}

// asSessionError converts a generator failure for the wire. Structured
// errors pass through; anything else is logged and reported as a generic
// internal failure so raw error text never reaches a consumer.
func asSessionError(err error, logger zerolog.Logger) *scribe.SessionError {
	var se *scribe.SessionError
	if errors.As(err, &se) {
		return se
	}
	logger.Error().Err(err).Msg("generator failed")
	return &scribe.SessionError{
		Kind:      scribe.KindInternal,
		Message:   "generation failed",
		Timestamp: time.Now(),
	}
}
