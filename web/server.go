// Package web serves the HTTP API of the otterconf daemon.
package web

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/ottermq/otterconf/internal/controller"
	"github.com/ottermq/otterconf/pkg/persistence"
	"github.com/ottermq/otterconf/web/handlers/api"
	"github.com/ottermq/otterconf/web/handlers/api_admin"
	"github.com/ottermq/otterconf/web/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type WebServer struct {
	config     *Config
	creds      *api_admin.Credentials
	Controller *controller.Controller
	Journal    persistence.Journal
	Registry   *prometheus.Registry
}

type Config struct {
	Username string
	// Password is hashed at startup unless PasswordHash, a bcrypt hash, is set.
	Password     string
	PasswordHash string
	JwtKey       string
	TokenTTL     time.Duration
	ApiPrefix    string
	// AccessLog receives one line per request when set.
	AccessLog io.Writer
}

func NewWebServer(config *Config, ctrl *controller.Controller, journal persistence.Journal, registry *prometheus.Registry) (*WebServer, error) {
	if config.Username == "" {
		return nil, errors.New("web server requires an API username")
	}
	if config.JwtKey == "" {
		return nil, errors.New("web server requires a JWT signing key")
	}

	hash := []byte(config.PasswordHash)
	if len(hash) == 0 {
		if config.Password == "" {
			return nil, errors.New("web server requires an API password or password hash")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(config.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, errors.New("API password hash is not a bcrypt hash")
	}

	ttl := config.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &WebServer{
		config: config,
		creds: &api_admin.Credentials{
			Username:     config.Username,
			PasswordHash: hash,
			JwtKey:       config.JwtKey,
			TokenTTL:     ttl,
		},
		Controller: ctrl,
		Journal:    journal,
		Registry:   registry,
	}, nil
}

func (ws *WebServer) SetupApp() *fiber.App {
	app := ws.configServer()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	if ws.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(ws.Registry, promhttp.HandlerOpts{})))
	}

	ws.AddApi(app)
	return app
}

func (ws *WebServer) AddApi(app *fiber.App) {
	// Public API routes
	app.Post(ws.config.ApiPrefix+"/login", func(c *fiber.Ctx) error {
		return api_admin.Login(c, ws.creds)
	})

	// Protected API routes
	apiGrp := app.Group(ws.config.ApiPrefix)
	apiGrp.Use(middleware.JwtMiddleware(ws.config.JwtKey))

	apiGrp.Get("/overview", func(c *fiber.Ctx) error {
		return api.GetOverview(c, ws.Controller)
	})

	apiGrp.Get("/runs", func(c *fiber.Ctx) error {
		return api.ListRuns(c, ws.Journal)
	})
	apiGrp.Get("/runs/:id", func(c *fiber.Ctx) error {
		return api.GetRun(c, ws.Journal)
	})
	apiGrp.Post("/runs", func(c *fiber.Ctx) error {
		return api.TriggerRun(c, ws.Controller)
	})
}

func (ws *WebServer) configServer() *fiber.App {
	config := fiber.Config{
		Prefork:               false,
		AppName:               "otterconf",
		DisableStartupMessage: true,
	}
	app := fiber.New(config)

	app.Use(middleware.CORSMiddleware())

	if ws.config.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Output: ws.config.AccessLog,
		}))
	}
	log.Debug().Str("prefix", ws.config.ApiPrefix).Msg("Web API configured")
	return app
}
