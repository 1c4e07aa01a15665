package scribe

// ErrorKind is the closed set of machine-readable failure categories.
// Producers report every kind except KindConnection, which only the
// consumer synthesizes when the transport ends without a well-formed
// terminal envelope.
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindRepoAccess         ErrorKind = "REPO_ACCESS_ERROR"
	KindAnalysis           ErrorKind = "ANALYSIS_ERROR"
	KindRateLimit          ErrorKind = "RATE_LIMIT_EXCEEDED"
	KindInsufficientTokens ErrorKind = "INSUFFICIENT_TOKENS"
	KindInternal           ErrorKind = "INTERNAL_SERVER_ERROR"
	KindConnection         ErrorKind = "CONNECTION_ERROR"
)

var errorKinds = map[ErrorKind]bool{
	KindValidation:         true,
	KindRepoAccess:         true,
	KindAnalysis:           true,
	KindRateLimit:          true,
	KindInsufficientTokens: true,
	KindInternal:           true,
	KindConnection:         true,
}

// ParseErrorKind maps a wire error code to an ErrorKind. ok is false for
// codes outside the closed set; callers fail closed to KindInternal rather
// than dropping the error.
func ParseErrorKind(code string) (ErrorKind, bool) {
	k := ErrorKind(code)
	return k, errorKinds[k]
}

// Retryable reports whether a session that failed with kind k may
// reasonably be retried by re-submitting the same request. The core never
// retries on its own; this informs caller-level retry decisions.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindInternal, KindAnalysis, KindRateLimit:
		return true
	default:
		return false
	}
}
