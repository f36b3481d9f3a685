package handler

import (
	"net/http"

	"s3-explorer/internal/middleware"
	"s3-explorer/internal/model"
)

// actorFromRequest builds the identity services act on. Requests that got
// past RequireAuth always carry claims; anything else is anonymous.
func actorFromRequest(r *http.Request) model.Actor {
	actor := model.Actor{ClientAddress: middleware.ClientIP(r)}

	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor.Principal = claims.Principal()
	}
	return actor
}
