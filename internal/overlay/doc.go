// Package overlay pushes status events to browser overlays over WebSockets.
package overlay
