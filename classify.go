package scribe

// Classification pairs a human-readable failure message with a suggested
// remediation action.
type Classification struct {
	Message string
	Action  string
}

// Classify maps an ErrorKind to user-facing text. The mapping is total:
// kinds outside the closed set fall through to the internal-error branch,
// so a raw error never reaches an end user. Pure function; consulted by
// callers, never by the Controller.
func Classify(kind ErrorKind) Classification {
	switch kind {
	case KindValidation:
		return Classification{
			Message: "The repository reference is missing or not valid.",
			Action:  "Check the repository owner/name or URL and submit again.",
		}
	case KindRepoAccess:
		return Classification{
			Message: "The repository could not be accessed.",
			Action:  "Verify the repository exists and your credential can read it.",
		}
	case KindAnalysis:
		return Classification{
			Message: "Analyzing the repository failed.",
			Action:  "Retry the session; persistent failures usually mean the repository layout is unsupported.",
		}
	case KindRateLimit:
		return Classification{
			Message: "Too many generation requests in a short time.",
			Action:  "Wait for the rate limit window to pass, then retry.",
		}
	case KindInsufficientTokens:
		return Classification{
			Message: "Your generation token balance is exhausted.",
			Action:  "Wait for the balance to reset before starting a new session.",
		}
	case KindConnection:
		return Classification{
			Message: "The connection to the generation service was lost.",
			Action:  "Check your network and retry the session.",
		}
	default:
		return Classification{
			Message: "The generation service reported an unexpected error.",
			Action:  "Try again in a few moments.",
		}
	}
}
