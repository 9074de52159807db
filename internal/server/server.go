// Package server assembles the HTTP surface of the LRS. Routes are
// declared as data: each entry names its scope requirement, and one
// registration loop applies the authentication and scope middleware, so
// policy lives in the table instead of being repeated per handler.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veris-dev/veris-lrs/internal/api"
	"github.com/veris-dev/veris-lrs/internal/auth"
)

// Config holds the deployment switches the route table depends on.
type Config struct {
	// AllowPublicRegister opens the registration route to unauthenticated
	// callers. Meant for bootstrapping and development; warned about at
	// startup.
	AllowPublicRegister bool
	// MaxBodyBytes bounds request bodies. Zero applies no bound.
	MaxBodyBytes int64
}

// Route is one entry of the declarative route table. A nil Scopes with
// Public false admits any authenticated caller; a non-nil Scopes requires
// one of the named roles; Public skips authentication entirely.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Scopes  []string
	Public  bool
}

// Routes builds the route table. The registration entry is the only one
// whose requirement depends on configuration.
func Routes(h *api.Handler, cfg Config) []Route {
	register := Route{Method: http.MethodPost, Path: "/users/register", Handler: h.Register, Scopes: []string{auth.RoleAdmin}}
	if cfg.AllowPublicRegister {
		register.Public = true
		register.Scopes = nil
	}

	return []Route{
		{Method: http.MethodGet, Path: "/status", Handler: h.Status, Public: true},

		// Credential exchanges
		{Method: http.MethodPost, Path: "/users/authenticate", Handler: h.Authenticate, Public: true},
		{Method: http.MethodPost, Path: "/users/authenticateWithMagicToken", Handler: h.AuthenticateMagic, Public: true},
		register,

		// Statement ingestion and queries: any authenticated caller
		{Method: http.MethodPost, Path: "/lrs", Handler: h.IngestStatement},
		{Method: http.MethodPost, Path: "/records/get", Handler: h.QueryStatements},

		// Own account
		{Method: http.MethodGet, Path: "/users/current", Handler: h.CurrentUser},
		{Method: http.MethodPut, Path: "/users/current", Handler: h.UpdateCurrentUser},

		// Administration
		{Method: http.MethodGet, Path: "/users/getall", Handler: h.ListUsers, Scopes: []string{auth.RoleAdmin}},
		{Method: http.MethodGet, Path: "/users/:id", Handler: h.GetUser, Scopes: []string{auth.RoleAdmin}},
		{Method: http.MethodPut, Path: "/users/:id", Handler: h.UpdateUser, Scopes: []string{auth.RoleAdmin}},
		{Method: http.MethodDelete, Path: "/users/:id", Handler: h.DeleteUser, Scopes: []string{auth.RoleAdmin}},
		{Method: http.MethodPost, Path: "/users/:id/magicToken", Handler: h.CreateMagicToken, Scopes: []string{auth.RoleAdmin}},
	}
}

// New assembles the gin engine: shared middleware, then the route table.
func New(h *api.Handler, a *auth.Authenticator, cfg Config, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AllowPublicRegister {
		log.Warn("public user registration is enabled, disable it in production")
	} else {
		log.Info("user registration restricted to admins")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	if cfg.MaxBodyBytes > 0 {
		r.Use(bodyLimit(cfg.MaxBodyBytes))
	}

	for _, rt := range Routes(h, cfg) {
		chain := make([]gin.HandlerFunc, 0, 3)
		if !rt.Public {
			chain = append(chain, auth.Middleware(a, log))
			if len(rt.Scopes) > 0 {
				chain = append(chain, auth.RequireScopes(rt.Scopes, log))
			}
		}
		chain = append(chain, rt.Handler)
		r.Handle(rt.Method, rt.Path, chain...)
	}
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
