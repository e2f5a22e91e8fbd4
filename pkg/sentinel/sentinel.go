package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Storage and transport layers
// return these (optionally wrapped) so higher layers can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: key or record does not exist
// - ErrExpired: token/session has expired
// - ErrUnavailable: resource temporarily unavailable (no durable storage,
//   backend unreachable)
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
