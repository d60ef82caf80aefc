package wirecho

// Standard error messages
const (
	// Server lifecycle errors
	ErrServerAlreadyRunning = "server already running"
	ErrServerNotRunning     = "server not running"

	// Connection errors
	ErrConnectionClosed  = "connection is closed"
	ErrRateLimitExceeded = "rate limit exceeded"
)
