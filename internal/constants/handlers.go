package constants

import "time"

// Web server constants
const (
	// RequestTimeout bounds ordinary API requests; compositions may take up to the composer timeout
	RequestTimeout = 2 * time.Minute

	// MaxRequestBodySize limits JSON request bodies (1MB)
	MaxRequestBodySize = 1 << 20
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size of a job event listener
	EventChannelBuffer = 100

	// SSEKeepAliveInterval is how often an idle event stream receives a comment line
	SSEKeepAliveInterval = 15 * time.Second
)
