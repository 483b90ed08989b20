package reconcile

import (
	"regexp"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/gateway"
	"github.com/rs/zerolog/log"
)

type grant struct {
	vhost     string
	configure *regexp.Regexp
	cred      gateway.Credential
}

// CredentialResolver picks the declared user entitled to configure a resource.
type CredentialResolver struct {
	grants   []grant
	fallback gateway.Credential
}

// NewCredentialResolver indexes the declared permissions in declaration order.
// Permissions whose user is not declared with a password cannot authenticate
// and are left out, as are malformed keys and invalid patterns.
func NewCredentialResolver(state *models.DesiredState, fallback gateway.Credential) *CredentialResolver {
	r := &CredentialResolver{fallback: fallback}
	state.Permissions.Each(func(key string, p models.Permissions) {
		user, vhost, err := models.ParseResourceKey(models.KindPermissions, key)
		if err != nil {
			return
		}
		u, ok := state.Users.Get(user)
		if !ok || u.Password == "" {
			log.Debug().Str("permissions", key).Msg("User not declared with a password, permissions not used for authentication")
			return
		}
		re, err := regexp.Compile("^(?:" + p.Configure + ")$")
		if err != nil {
			log.Warn().Err(err).Str("permissions", key).Str("configure", p.Configure).Msg("Invalid configure pattern")
			return
		}
		r.grants = append(r.grants, grant{
			vhost:     vhost,
			configure: re,
			cred:      gateway.Credential{Username: user, Password: u.Password},
		})
	})
	return r
}

// Resolve returns the credential of the first declared user whose configure
// pattern in vhost fully matches name, or the fallback credential.
func (r *CredentialResolver) Resolve(vhost, name string) gateway.Credential {
	for _, g := range r.grants {
		if g.vhost == vhost && g.configure.MatchString(name) {
			return g.cred
		}
	}
	return r.fallback
}
