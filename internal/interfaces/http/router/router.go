package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a parent group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type mount struct {
	registrar RouteRegistrar
	// also served at the root, outside /api/<version>
	atRoot bool
}

// Router collects registrars and mounts them on the engine in Setup
type Router struct {
	engine     *gin.Engine
	apiVersion string
	mounts     []mount
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of /api/<version>; default v1
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register mounts registrar under /api/<version> only
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.mounts = append(r.mounts, mount{registrar: registrar})
	return r
}

// RegisterAliased mounts registrar at the root and under /api/<version>,
// so /recipes and /api/v1/recipes serve the same handlers.
func (r *Router) RegisterAliased(registrar RouteRegistrar) *Router {
	r.mounts = append(r.mounts, mount{registrar: registrar, atRoot: true})
	return r
}

// Setup registers every mount with the engine. Call it once.
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, m := range r.mounts {
		if m.atRoot {
			m.registrar.RegisterRoutes(&r.engine.RouterGroup)
		}
		m.registrar.RegisterRoutes(api)
	}
}

// DomainGroup is a prefix plus its routes and middleware. It holds
// definitions only, so it can be mounted under several parents.
type DomainGroup struct {
	prefix     string
	routes     []route
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handlers: handlers})
	return dg
}

// Prefix returns the path prefix the group mounts at
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// RegisterRoutes implements RouteRegistrar.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
}
