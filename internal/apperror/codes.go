package apperror

// Code identifies a class of application error.
type Code string

// General codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen        Code = "CIRCUIT_OPEN"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Market simulation codes
const (
	CodeUnknownVenue                 Code = "UNKNOWN_VENUE"
	CodeUnknownInstrument            Code = "UNKNOWN_INSTRUMENT"
	CodeSimulationInvariantViolation Code = "SIMULATION_INVARIANT_VIOLATION"
)

// Arbitrage codes
const (
	CodeStaleOpportunity Code = "STALE_OPPORTUNITY"
	CodeTickOverrun      Code = "TICK_OVERRUN"
	CodeTickFailed       Code = "TICK_FAILED"
	CodeEngineStopped    Code = "ENGINE_STOPPED"
	CodeEngineRunning    Code = "ENGINE_RUNNING"
)
