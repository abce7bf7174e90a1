// Package presenters builds the interaction responses the bot replies with.
package presenters
