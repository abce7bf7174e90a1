package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/presenters"
)

// Route pairs an interaction matcher with the handler that serves it.
type Route struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler func(DiscordSession, *discordgo.InteractionCreate) error
}

// CommandMatcher matches an application command by name.
func CommandMatcher(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

// CommandRouter dispatches interactions to the first matching route, in
// registration order.
type CommandRouter struct {
	routes []*Route
	ids    map[string]struct{}
}

func NewCommandRouter() *CommandRouter {
	return &CommandRouter{ids: make(map[string]struct{})}
}

func (r *CommandRouter) Register(route *Route) {
	if _, exists := r.ids[route.ID]; exists {
		panic(fmt.Sprintf("route %q already registered", route.ID))
	}
	r.ids[route.ID] = struct{}{}
	r.routes = append(r.routes, route)
}

// Route runs the matching handler. Interactions nothing matches are ignored.
func (r *CommandRouter) Route(s DiscordSession, i *discordgo.InteractionCreate) error {
	for _, route := range r.routes {
		if route.Matcher(i) {
			return route.Handler(s, i)
		}
	}
	return nil
}

// Handle routes i and reports any failure back to the user. Failures never
// leave the handler.
func (r *CommandRouter) Handle(s DiscordSession, i *discordgo.InteractionCreate) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while handling interaction", "interactionID", i.ID, "panic", p)
		}
	}()

	err := r.Route(s, i)
	if err == nil {
		return
	}

	var userErr *UserError
	resp := presenters.InternalErrorResponse
	if errors.As(err, &userErr) {
		slog.Info("Interaction rejected", "interactionID", i.ID, "reason", userErr.Message, "cause", userErr.Cause)
		resp = presenters.BuildUserErrorResponse(userErr.Message)
	} else {
		slog.Error("Failed to handle interaction", "interactionID", i.ID, "error", err)
	}

	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		slog.Error("Failed to respond with error", "interactionID", i.ID, "error", err)
	}
}
