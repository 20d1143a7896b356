package types

import "github.com/pkg/errors"

// Transport errors (§7): recovery is to drop the connection; upper layers
// observe a `dropped` event.
var (
	ErrTransportClosed   = errors.New("transport closed")
	ErrTransportDecode   = errors.New("transport frame decode failure")
	ErrTransportOversize = errors.New("transport frame exceeds max size")
	ErrTransportRefused  = errors.New("transport connection refused")
)

// Route errors (§7): recovery is a silent drop, debug log only.
var (
	ErrNoRoute      = errors.New("no route to destination")
	ErrLoopDetected = errors.New("advertised subtree contains local node")
	ErrSelfEcho     = errors.New("broadcast originated locally")
)

// Protocol errors (§7): the frame is discarded, the link is not dropped.
var (
	ErrUnknownType = errors.New("unknown package type")
	ErrBadField    = errors.New("bad field in package body")
)

// Election errors (§7): the election returns to Idle; the next trigger may
// retry.
var (
	ErrNotEligible     = errors.New("node not eligible to start an election")
	ErrRouterNotVisible = errors.New("configured router ssid not visible")
	ErrRateLimited     = errors.New("election rate limited by recent role change")
)

// Queue errors (§7): surfaced to the caller. ErrSaturated for a Critical
// message is a hard failure the caller must observe.
var (
	ErrSaturated  = errors.New("queue saturated: no evictable victim")
	ErrNotEnabled = errors.New("message queue not enabled")
	ErrNotFound   = errors.New("message not found")
)

// Config errors (§7): the setter is rejected, prior state is unchanged.
var (
	ErrInvalidValue = errors.New("invalid configuration value")
	ErrNotSupported = errors.New("configuration option not supported")
)
