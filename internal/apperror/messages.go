package apperror

var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeCircuitOpen:        "Circuit breaker is open",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeUnknownVenue:                 "Unknown venue",
	CodeUnknownInstrument:            "Unknown instrument",
	CodeSimulationInvariantViolation: "Quote update would cross the book; spread clamped",

	CodeStaleOpportunity: "Opportunity is no longer active",
	CodeTickOverrun:      "Tick exceeded its period; next tick skipped",
	CodeTickFailed:       "Tick failed and was dropped",
	CodeEngineStopped:    "Engine is not running",
	CodeEngineRunning:    "Engine is already running",
}
