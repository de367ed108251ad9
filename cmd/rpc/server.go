package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/alecthomas/units"
	"github.com/canopy-network/spectroscope/lib"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
)

// Server is the command driver: it exposes the nodes commands over HTTP JSON
type Server struct {
	responder *Responder
	config    lib.RPCConfig
	server    *http.Server
	addr      net.Addr
	logger    lib.LoggerI
}

// NewServer constructs and returns a new RPC server
func NewServer(responder *Responder, config lib.RPCConfig, logger lib.LoggerI) *Server {
	return &Server{responder: responder, config: config, logger: logger}
}

// Handler() returns the routed handler wrapped with the CORS policy and request timeout
func (s *Server) Handler() http.Handler {
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})
	timeout := time.Duration(s.config.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(lib.DefaultRPCConfig().TimeoutS) * time.Second
	}
	// expiry cancels the request context, so modules not yet called fail without running
	return cor.Handler(http.TimeoutHandler(createRouter(s), timeout, ErrServerTimeout().Error()))
}

// Start() serves the RPC in the background, accepting at most MaxConnections concurrent connections
func (s *Server) Start() {
	ln, err := net.Listen("tcp", colon+s.config.RPCPort)
	if err != nil {
		s.logger.Fatal(err.Error())
	}
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}
	s.server, s.addr = &http.Server{Handler: s.Handler()}, ln.Addr()
	go func() {
		s.logger.Infof("Starting RPC server at %s", ln.Addr())
		if e := s.server.Serve(ln); e != nil && !errors.Is(e, http.ErrServerClosed) {
			s.logger.Fatal(e.Error())
		}
	}()
}

// Addr() returns the listening address once started
func (s *Server) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop() gracefully shuts the server down
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Version returns the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, SoftwareVersion, http.StatusOK)
}

// Nodes executes the add, up, del or get command named by the path
func (s *Server) Nodes(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	req := new(NodesRequest)
	if ok := unmarshal(w, r, req); !ok {
		return
	}
	resp, err := s.responder.Execute(r.Context(), p.ByName(requestParam), req.ValidatorKeys, req.Status)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	write(w, resp, http.StatusOK)
}

// WatchList describes the validators currently streamed
func (s *Server) WatchList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.responder.WatchList(), http.StatusOK)
}

// logHandler serves as a middleware that logs incoming RPC calls
type logHandler struct {
	path   string
	h      httprouter.Handle
	logger lib.LoggerI
}

// Handle
func (h logHandler) Handle(resp http.ResponseWriter, req *http.Request, p httprouter.Params) {
	h.logger.Debugf("%s %s", req.Method, h.path)
	h.h(resp, req, p)
}

// unmarshal() decodes a size limited request body into ptr, writing a 400 on failure
func unmarshal(w http.ResponseWriter, r *http.Request, ptr interface{}) bool {
	bz, err := io.ReadAll(io.LimitReader(r.Body, int64(units.MB)))
	if err != nil {
		write(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if len(bz) == 0 {
		return true
	}
	if err = json.Unmarshal(bz, ptr); err != nil {
		write(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write marshaled payload to w
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}
