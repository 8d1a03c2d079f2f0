package common

// AuthError marks an authentication failure the venue reports as
// unrecoverable (bad/revoked key), as opposed to a transient network
// error during the auth handshake. Authenticating -> Faulted only on an
// AuthError; anything else is treated as a transient Disconnected and
// retried with backoff.
type AuthError struct {
	Venue string
	Err   error
}

func (e *AuthError) Error() string {
	return "auth failed for " + e.Venue + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// SubscriptionError marks a non-fatal subscription failure (unknown
// channel, unauthorized market): the adapter logs it and continues with
// whatever subscriptions did succeed.
type SubscriptionError struct {
	Channel string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return "subscription failed for " + e.Channel + ": " + e.Err.Error()
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
