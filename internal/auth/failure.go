package auth

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Reason classifies a sign-in failure.
type Reason string

// Failure reasons.
const (
	ReasonPopupBlocked  Reason = "popup_blocked"
	ReasonCancelled     Reason = "cancelled"
	ReasonNetwork       Reason = "network"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonDisabled      Reason = "disabled"
	ReasonMisconfigured Reason = "misconfigured"
	ReasonOffline       Reason = "offline"
	ReasonUnknown       Reason = "unknown"
)

// DismissAfter is how long a sign-in failure message stays on screen.
const DismissAfter = 5 * time.Second

// Failure is the user-facing form of a sign-in failure.
type Failure struct {
	Reason              Reason `json:"reason"`
	Message             string `json:"message"`
	DismissAfterSeconds int    `json:"dismiss_after_seconds"`
}

var messages = map[Reason]string{
	ReasonPopupBlocked:  "Popup was blocked by your browser. Please allow popups and try again.",
	ReasonCancelled:     "Sign-in was cancelled. Please try again.",
	ReasonNetwork:       "Network error. Please check your internet connection and try again.",
	ReasonRateLimited:   "Too many sign-in attempts. Please wait a moment and try again.",
	ReasonDisabled:      "This account has been disabled. Please contact support.",
	ReasonMisconfigured: "Authentication is not properly configured. Please contact support.",
	ReasonOffline:       "You appear to be offline. The app will work in limited mode until you reconnect.",
	ReasonUnknown:       "Failed to sign in. Please try again.",
}

var providerCodes = map[string]Reason{
	"popup-blocked":           ReasonPopupBlocked,
	"popup-closed-by-user":    ReasonCancelled,
	"cancelled-popup-request": ReasonCancelled,
	"network-request-failed":  ReasonNetwork,
	"too-many-requests":       ReasonRateLimited,
	"user-disabled":           ReasonDisabled,
	"configuration-not-found": ReasonMisconfigured,
	"unavailable":             ReasonOffline,
}

// Message returns the user-facing message for a reason.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return messages[ReasonUnknown]
}

// Classify maps a provider failure code (with or without the "auth/"
// prefix) and its message to a Failure.
func Classify(code, message string) Failure {
	code = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(code)), "auth/")
	reason, ok := providerCodes[code]
	if !ok {
		reason = ReasonUnknown
		if strings.Contains(strings.ToLower(message), "offline") {
			reason = ReasonOffline
		}
	}
	return newFailure(reason)
}

// ClassifyError maps a server-side verification or store error to a Failure.
func ClassifyError(err error) Failure {
	if err == nil {
		return newFailure(ReasonUnknown)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newFailure(ReasonNetwork)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newFailure(ReasonNetwork)
	}
	return Classify("", err.Error())
}

func newFailure(r Reason) Failure {
	return Failure{Reason: r, Message: r.Message(), DismissAfterSeconds: int(DismissAfter / time.Second)}
}
