package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"gamelobby/internal/http/lobbyhandler"
	"gamelobby/internal/metrics"
	"gamelobby/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

// apiSpecsDir holds the swag output generated from the lobbyhandler annotations.
const apiSpecsDir = "api_specs"

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	reader     lobbyhandler.Reader
	wsSrv      *ws.WsServer
	specsDir   string
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, reader lobbyhandler.Reader) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		reader:     reader,
		specsDir:   apiSpecsDir,
		ctx:        ctx,
	}
}

// Router builds the gin engine. Exposed separately from Start for tests.
func (h *httpServer) Router() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", h.specsDir)

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint, with and without the trailing slash clients use
	routerEngine.GET("/ws/game/:room", h.wsSrv.Handle)
	routerEngine.GET("/ws/game/:room/", h.wsSrv.Handle)

	routerEngine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	routerEngine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// REST API
	lh := lobbyhandler.New(h.reader)
	lh.Register(routerEngine)

	return routerEngine
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("http.listen", zap.String("addr", listenAddr))
	if err := h.srv.Serve(h.ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish. Hijacked websocket
// connections are not tracked by Shutdown; they end with the process.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}
	return nil
}
