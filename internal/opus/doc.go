// Package opus knows the little about Opus frames the overlay needs: telling
// Discord's end-of-transmission silence marker apart from speech so the
// speaking receiver does not treat it as activity.
package opus
