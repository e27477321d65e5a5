// Package httpapi exposes the DocSafe HTTP API: account endpoints plus
// document metadata operations. Envelope blobs never pass through here;
// clients exchange them with object storage over presigned URLs.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/logging"
	"github.com/dmitrijs2005/docsafe/internal/server/services"
	"github.com/gin-gonic/gin"
)

type Server struct {
	address   string
	engine    *gin.Engine
	logger    logging.Logger
	users     *services.UserService
	documents *services.DocumentService
}

func NewServer(address string, l logging.Logger, us *services.UserService, ds *services.DocumentService, secretKey string) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		users:     us,
		documents: ds,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	registerRoutes(engine, s, []byte(secretKey))
	s.engine = engine

	return s, nil
}

func registerRoutes(r *gin.Engine, s *Server, jwtSecret []byte) {
	api := r.Group("/api")
	{
		api.POST("/users/register", s.handleRegister)
		api.GET("/users/salt", s.handleGetSalt)
		api.POST("/users/login", s.handleLogin)

		docs := api.Group("/documents")
		docs.Use(authRequired(jwtSecret))
		{
			docs.POST("", s.handleCreateDocument)
			docs.GET("", s.handleListDocuments)
			docs.GET("/:id", s.handleGetDocument)
			docs.POST("/:id/uploaded", s.handleMarkUploaded)
		}
	}
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
