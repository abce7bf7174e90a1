package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/glizzus/voice-overlay/internal/members"
)

type allMembersResponse struct {
	Members []members.GuildMember `json:"members"`
}

func (s *Server) channelMembers(w http.ResponseWriter, r *http.Request) {
	channel, err := s.members.InChannel(r.Context(), r.URL.Query().Get("channelId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (s *Server) allMembers(w http.ResponseWriter, r *http.Request) {
	list, err := s.members.All(r.Context())
	if err != nil {
		slog.Error("failed to fetch guild members", "error", err)
		writeError(w, http.StatusInternalServerError, "cannot fetch members")
		return
	}
	writeJSON(w, http.StatusOK, allMembersResponse{Members: list})
}

func (s *Server) getStatuses(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.statuses.All(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
