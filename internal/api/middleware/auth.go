package middleware

import (
	"context"
	"net/http"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/response"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the authenticated principal stored by Auth, or
// nil outside an authenticated request.
func PrincipalFrom(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalKey).(*model.Principal)
	return p
}

// WithPrincipal injects a principal into the context. Exported for
// handler tests.
func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Auth validates the X-API-Token header against the api_tokens table
// and loads the owning user's role and group relationships into the
// request context. Tokens are stored hashed; the raw token never
// touches the metadata database.
func Auth(pool core.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-API-Token")
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API token")
				return
			}

			var (
				id, name, roleStr string
				groupIDs          []string
				managedGroupIDs   []string
			)
			err := pool.QueryRow(r.Context(),
				`SELECT u.id, u.name, u.role,
				        COALESCE((SELECT array_agg(gm.group_id) FROM group_members gm WHERE gm.user_id = u.id), '{}'),
				        COALESCE((SELECT array_agg(mg.group_id) FROM group_managers mg WHERE mg.user_id = u.id), '{}')
				 FROM users u
				 JOIN api_tokens t ON t.user_id = u.id
				 WHERE t.token_hash = $1 AND t.revoked_at IS NULL`,
				crypto.TokenHash(token),
			).Scan(&id, &name, &roleStr, &groupIDs, &managedGroupIDs)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid API token")
				return
			}

			role, err := model.ParseRole(roleStr)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid API token")
				return
			}

			principal := &model.Principal{
				ID:              id,
				Name:            name,
				Role:            role,
				GroupIDs:        groupIDs,
				ManagedGroupIDs: managedGroupIDs,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin rejects requests from non-admin principals. It must run
// after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p == nil || !p.IsAdmin() {
			response.WriteError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
