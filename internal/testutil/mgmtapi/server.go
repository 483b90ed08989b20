// Package mgmtapi serves an in-memory imitation of the RabbitMQ management
// HTTP API for tests. Requests are dispatched in-process through fiber's
// App.Test, so no listener is opened.
package mgmtapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/ottermq/otterconf/internal/core/models"
)

// Request is a request the server has handled.
type Request struct {
	Method string
	Path   string
	User   string
}

type Server struct {
	App *fiber.App

	store *store

	mu       sync.Mutex
	requests []Request
	down     bool
}

// NewServer returns a server whose only user is the administrator user/password.
func NewServer(user, password string) *Server {
	s := &Server{store: newStore(user, password)}
	s.App = s.setupApp()
	return s
}

// Do satisfies gateway.Doer.
func (s *Server) Do(req *http.Request) (*http.Response, error) {
	return s.App.Test(req, -1)
}

// SetDown makes api/overview answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *Server) isDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

// Requests returns the handled requests in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts handled requests with method whose raw path starts with prefix.
func (s *Server) CountRequests(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// ResetRequests forgets handled requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) setupApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "otterconf-fake-management",
		DisableStartupMessage: true,
		// route params become store keys and must outlive the request
		Immutable: true,
	})

	app.Use(basicauth.New(basicauth.Config{
		Authorizer: s.store.authenticate,
	}))
	app.Use(func(c *fiber.Ctx) error {
		user, _ := c.Locals("username").(string)
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: c.Method(), Path: c.Path(), User: user})
		s.mu.Unlock()
		return c.Next()
	})

	s.addRoutes(app)
	return app
}

func (s *Server) addRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/overview", s.getOverview)

	api.Get("/vhosts", s.listVHosts)
	api.Put("/vhosts/:vhost", s.putVHost)

	api.Get("/users", s.listUsers)
	api.Put("/users/:user", s.putUser)

	api.Get("/permissions", s.listPermissions)
	api.Put("/permissions/:vhost/:user", s.putPermissions)

	api.Get("/exchanges/:vhost/:name", s.getExchange)
	api.Put("/exchanges/:vhost/:name", s.putExchange)

	api.Get("/queues/:vhost/:name", s.getQueue)
	api.Put("/queues/:vhost/:name", s.putQueue)

	api.Get("/bindings/:vhost", s.listBindings)
	api.Post("/bindings/:vhost/e/:source/:dtype/:dest", s.postBinding)
}

/* Seeding helpers */

func (s *Server) AddVHost(name string, tracing bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.vhosts[name] = models.VHostDTO{Name: name, Tracing: tracing}
}

func (s *Server) AddUser(name, password string, admin bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	rec := userRecord{password: password}
	if admin {
		rec.tags = models.UserTags{models.AdministratorTag}
	}
	s.store.users[name] = rec
}

func (s *Server) SetPermissions(user, vhost string, p models.Permissions) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.perms[objectKey{vhost, user}] = models.PermissionDTO{
		User: user, VHost: vhost, Configure: p.Configure, Write: p.Write, Read: p.Read,
	}
}

func (s *Server) AddExchange(dto models.ExchangeDTO) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.exchanges[objectKey{dto.VHost, dto.Name}] = dto
}

func (s *Server) AddQueue(dto models.QueueDTO) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.queues[objectKey{dto.VHost, dto.Name}] = dto
}

func (s *Server) AddBinding(dto models.BindingDTO) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.bindings = append(s.store.bindings, dto)
}

/* Inspection helpers */

func (s *Server) Exchange(vhost, name string) (models.ExchangeDTO, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	dto, ok := s.store.exchanges[objectKey{vhost, name}]
	return dto, ok
}

func (s *Server) Queue(vhost, name string) (models.QueueDTO, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	dto, ok := s.store.queues[objectKey{vhost, name}]
	return dto, ok
}

func (s *Server) Bindings(vhost string) []models.BindingDTO {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []models.BindingDTO
	for _, b := range s.store.bindings {
		if b.VHost == vhost {
			out = append(out, b)
		}
	}
	return out
}
