// Package status defines the status events pushed to overlay clients and the
// places they flow through on their way out.
//
// An Event is the pair (subject, status) serialized as {"id": ..., "status": ...}.
// A Broadcaster is the only write path into the overlay transport. A Store keeps
// the last status seen per subject so overlays that connect late can read a
// snapshot instead of waiting for the next edge.
package status
