package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Tracking constants
const (
	// TrackPath is the public route of the click tracker
	TrackPath = "/api/v1/track"

	// LegacyTrackPath keeps tracking URLs minted by the old edge function resolvable
	LegacyTrackPath = "/functions/v1/track-click"

	// UnknownClientValue is stored when the client address or user agent is absent
	UnknownClientValue = "unknown"

	// MaxClientIPLength and MaxUserAgentLength bound the visitor identity stored in the click log
	MaxClientIPLength  = 64
	MaxUserAgentLength = 512

	// UnknownEmail is returned when a user identifier cannot be resolved to an email
	UnknownEmail = "Unknown"

	// VisitTimeout bounds a single redirect request
	VisitTimeout = 10 * time.Second

	// ReconcileGracePeriod is how long a record may stay in provisioning before the reconciler picks it up
	ReconcileGracePeriod = time.Minute
)

// Request-scoped context keys
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
)
