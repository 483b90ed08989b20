package mgmtapi

import (
	"regexp"
	"sync"

	"github.com/ottermq/otterconf/internal/core/models"
)

type userRecord struct {
	password string
	tags     models.UserTags
}

type objectKey struct {
	vhost string
	name  string
}

// store is the in-memory broker inventory behind the fake management API.
type store struct {
	mu sync.Mutex

	bootstrapUser string

	vhosts    map[string]models.VHostDTO
	users     map[string]userRecord
	perms     map[objectKey]models.PermissionDTO // {vhost, user}
	exchanges map[objectKey]models.ExchangeDTO
	queues    map[objectKey]models.QueueDTO
	bindings  []models.BindingDTO
}

func newStore(user, password string) *store {
	s := &store{
		bootstrapUser: user,
		vhosts:        map[string]models.VHostDTO{"/": {Name: "/"}},
		users:         map[string]userRecord{user: {password: password, tags: models.UserTags{models.AdministratorTag}}},
		perms:         make(map[objectKey]models.PermissionDTO),
		exchanges:     make(map[objectKey]models.ExchangeDTO),
		queues:        make(map[objectKey]models.QueueDTO),
	}
	s.perms[objectKey{"/", user}] = models.PermissionDTO{User: user, VHost: "/", Configure: ".*", Write: ".*", Read: ".*"}
	return s
}

func (s *store) authenticate(user, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[user]
	return ok && rec.password == password
}

// canAccess reports whether user may see objects in vhost.
func (s *store) canAccess(user, vhost string) bool {
	if user == s.bootstrapUser {
		return true
	}
	_, ok := s.perms[objectKey{vhost, user}]
	return ok
}

// canConfigure reports whether user may create resource in vhost.
func (s *store) canConfigure(user, vhost, resource string) bool {
	if user == s.bootstrapUser {
		return true
	}
	p, ok := s.perms[objectKey{vhost, user}]
	if !ok {
		return false
	}
	re, err := regexp.Compile("^(?:" + p.Configure + ")$")
	return err == nil && re.MatchString(resource)
}

func (s *store) isAdmin(user string) bool {
	rec, ok := s.users[user]
	return ok && rec.tags.Has(models.AdministratorTag)
}

func (s *store) hasBinding(b models.BindingDTO) bool {
	for _, existing := range s.bindings {
		if existing.VHost == b.VHost &&
			existing.Source == b.Source &&
			existing.ToModel().Equal(b.ToModel()) {
			return true
		}
	}
	return false
}
