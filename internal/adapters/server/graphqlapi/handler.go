// Package graphqlapi serves the board service GraphQL schema over HTTP.
package graphqlapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/hylla/kanboard/internal/adapters/server/common"
)

// Handler authorizes requests and forwards them to the relay handler.
type Handler struct {
	relay *relay.Handler
	auth  common.Authorizer
}

// NewHandler parses the schema against the supplied services.
func NewHandler(boards common.BoardDirectory, accounts common.AccountService, auth common.Authorizer) (*Handler, error) {
	if boards == nil || accounts == nil || auth == nil {
		return nil, fmt.Errorf("board, account, and auth services are required")
	}
	schema, err := graphql.ParseSchema(Schema, &resolver{boards: boards, accounts: accounts})
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &Handler{relay: &relay.Handler{Schema: schema}, auth: auth}, nil
}

// ServeHTTP handles one GraphQL request. A rejected bearer token fails the
// whole request; a missing one leaves the request anonymous.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.relay == nil {
		http.Error(w, "graphql handler unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, err := h.auth.Authorize(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeErrors(w, http.StatusUnauthorized, resolverError(err).Error())
		return
	}
	h.relay.ServeHTTP(w, r.WithContext(ctx))
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	type gqlMessage struct {
		Message string `json:"message"`
	}
	payload := struct {
		Errors []gqlMessage `json:"errors"`
	}{}
	for _, m := range messages {
		payload.Errors = append(payload.Errors, gqlMessage{Message: m})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
