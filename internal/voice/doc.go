// Package voice keeps the bot in voice channels and turns received audio into
// speaking edges.
//
// A Manager owns one Connection per guild through an explicit Registry.
// EnsureInVoice is join-if-absent: it never moves the bot and never blocks on
// the gateway; the dial happens in the background and a failed dial simply
// leaves no handle behind so the next trigger retries.
//
// Every Connection has a Receiver. The Receiver maps SSRCs to users from the
// speaking updates Discord sends, marks a user as speaking on the first opus
// packet and as silent after a short gap without packets. Listeners are
// registered with tokens so that one owner can replace its own listeners
// without touching anybody else's.
package voice
