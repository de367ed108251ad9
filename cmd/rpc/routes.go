package rpc

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// Spectroscope RPC Paths
const (
	VersionRoutePath   = "/v1/"
	NodesRoutePath     = "/v1/nodes/:" + requestParam // :request is add, up, del or get
	WatchListRoutePath = "/v1/watchlist"

	requestParam = "request"
)

const (
	VersionRouteName   = "version"
	NodesRouteName     = "nodes"
	WatchListRouteName = "watchlist"
)

// routes contains the method and path for a route
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths
var routePaths = routes{
	VersionRouteName:   {Method: http.MethodGet, Path: VersionRoutePath},
	NodesRouteName:     {Method: http.MethodPost, Path: NodesRoutePath},
	WatchListRouteName: {Method: http.MethodGet, Path: WatchListRoutePath},
}

// NodesPath() returns the path of a nodes command
func NodesPath(request string) string {
	return strings.Replace(NodesRoutePath, ":"+requestParam, request, 1)
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with predefined route handlers.
func createRouter(s *Server) *httprouter.Router {
	var r = httpRouteHandlers{
		VersionRouteName:   s.Version,
		NodesRouteName:     s.Nodes,
		WatchListRouteName: s.WatchList,
	}
	router := httprouter.New()
	for name, handler := range r {
		path := routePaths[name]
		router.Handle(path.Method, path.Path, logHandler{path.Path, handler, s.logger}.Handle)
	}
	return router
}
