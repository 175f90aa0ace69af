package reliability

// Kind classifies why a call to an upstream chat service failed.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindMalformed Kind = "malformed"
)

// ClassifyHTTPStatus maps a non-2xx upstream status onto a failure kind.
func ClassifyHTTPStatus(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 429:
		return KindRateLimit
	case code >= 500:
		return KindNetwork
	case code >= 400:
		return KindMalformed
	default:
		return KindMalformed
	}
}

// ClassifyTransportError maps errors that never produced an HTTP status.
// Timeouts, cancellation and dial failures are all network failures.
func ClassifyTransportError(err error) Kind {
	if err == nil {
		return KindMalformed
	}
	return KindNetwork
}

// Retryable reports whether a failure of this kind may succeed if the user
// simply tries again later.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindRateLimit
}
