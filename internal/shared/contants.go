package shared

const (
	// client library tags stamped on records by each adapter
	NetHTTPClient     = "net/http"
	InterceptorClient = "interceptor"

	// Unknown replaces request fields that cannot be read on the error path
	Unknown = "UNKNOWN"

	// NoStatus is the status code recorded when no response was received
	NoStatus = -1

	RedactedPrefix = "redacted:"
)
