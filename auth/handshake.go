package auth

import (
	"net/http"
	"strings"

	"task-hub/domain"
	"task-hub/errors"
)

// VerifyRequest authenticates a connection handshake. The token is taken
// from the Authorization header, the "token" query parameter, or the
// "token" cookie, in that order. Browser WebSocket clients cannot set
// headers, which is why the query parameter and cookie fallbacks exist.
func (g *Gate) VerifyRequest(r *http.Request) (domain.Identity, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return domain.Identity{}, errors.ErrMissingToken
	}
	claims, err := g.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.Identity(), nil
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
