package export

import (
	"net/http"

	"github.com/ttab/elephantine"
	"github.com/twitchtv/twirp"
)

const (
	ScopeExportRead = "export_read"
)

// requireScope authenticates a request using its bearer token. A nil parser
// allows anonymous access.
func requireScope(
	parser *elephantine.AuthInfoParser, r *http.Request, scope string,
) (*elephantine.AuthInfo, error) {
	if parser == nil {
		return nil, nil
	}

	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return nil, twirp.Unauthenticated.Error(
			"no anonymous access allowed")
	}

	auth, err := parser.AuthInfoFromHeader(authorization)
	if err != nil {
		return nil, twirp.Unauthenticated.Errorf(
			"invalid token: %v", err)
	}

	if !auth.Claims.HasScope(scope) {
		return nil, twirp.PermissionDenied.Errorf(
			"the scope %q is required", scope)
	}

	return auth, nil
}
