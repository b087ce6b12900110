package playback

import "errors"

// ErrMissingTimestamp reports a frame without a usable scan time while
// synchronized playback is in effect. Guessing where an untimed frame falls
// in the marker sequence is undefined, so the session fails fast instead.
// Like timeline.ErrConfig, it is fatal to the session.
var ErrMissingTimestamp = errors.New("scan frame has no timestamp")

// ErrSteppingUnsupported reports a manual step against a cache without a
// reversible cursor.
var ErrSteppingUnsupported = errors.New("cache does not support manual stepping")
