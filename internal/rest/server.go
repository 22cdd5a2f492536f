package rest

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/database"
	"github.com/wheresmywater/backend/internal/rest/handler"
	"github.com/wheresmywater/backend/internal/rest/middleware/auth"
	"github.com/wheresmywater/backend/internal/rest/middleware/ip"
	"github.com/wheresmywater/backend/internal/rest/middleware/ratelimit"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

// Dependencies are the stores and services the handlers read from.
type Dependencies struct {
	Votes     handler.VoteCaster
	Fountains handler.FountainStore
	Buildings handler.BuildingStore
}

// Server implements the REST API service.
type Server struct {
	handler     http.Handler
	rateLimiter *ratelimit.Middleware
}

// NewServer creates a REST API server backed by the database client.
func NewServer(db database.Client, logger *zap.Logger, cfg *config.APIConfig) (*Server, error) {
	return New(Dependencies{
		Votes:     db.Service().Vote(),
		Fountains: db.Model().Fountain(),
		Buildings: db.Model().Building(),
	}, logger, cfg)
}

// New creates a REST API server from explicit dependencies.
func New(deps Dependencies, logger *zap.Logger, cfg *config.APIConfig) (*Server, error) {
	voteHandler := handler.NewVoteHandler(deps.Votes, logger)
	fountainHandler := handler.NewFountainHandler(deps.Fountains, deps.Buildings, logger)
	buildingHandler := handler.NewBuildingHandler(deps.Buildings, logger)

	// Create middleware instances
	ipMiddleware := ip.New(logger, &cfg.IP)
	rateLimiter := ratelimit.New(&cfg.RateLimit, logger)
	authMiddleware, err := auth.New(&cfg.Auth, logger)
	if err != nil {
		rateLimiter.Close()
		return nil, err
	}

	router := bunrouter.New(
		bunrouter.Use(errorLogger(logger.Named("rest"))),
	)

	router.Use(
		ipMiddleware.AsRESTMiddleware,
		rateLimiter.AsRESTMiddleware,
	).WithGroup("/api", func(g *bunrouter.Group) {
		g.GET("/health", handler.Health)

		g.WithGroup("/fountains", func(g *bunrouter.Group) {
			g.GET("/list", fountainHandler.ListFountains)
			g.POST("/get", fountainHandler.GetFountain)
		})

		g.WithGroup("/buildings", func(g *bunrouter.Group) {
			g.GET("/list", buildingHandler.ListBuildings)
			g.POST("/get", buildingHandler.GetBuilding)
		})

		// Writes require an access token
		protected := g.Use(authMiddleware.AsRESTMiddleware)

		protected.WithGroup("/fountains", func(g *bunrouter.Group) {
			g.POST("/create", fountainHandler.CreateFountain)
			g.POST("/update", fountainHandler.UpdateFountain)
			g.POST("/delete", fountainHandler.DeleteFountain)
		})

		protected.WithGroup("/buildings", func(g *bunrouter.Group) {
			g.POST("/create", buildingHandler.CreateBuilding)
			g.POST("/update", buildingHandler.UpdateBuilding)
			g.POST("/delete", buildingHandler.DeleteBuilding)
		})

		protected.WithGroup("/votes", func(g *bunrouter.Group) {
			g.POST("/add", voteHandler.AddVote)
		})
	})

	return &Server{
		handler:     gzhttp.GzipHandler(router),
		rateLimiter: rateLimiter,
	}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.rateLimiter.Close()
}

// errorLogger logs errors returned by handlers after the response was written.
func errorLogger(logger *zap.Logger) bunrouter.MiddlewareFunc {
	return func(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
		return func(w http.ResponseWriter, req bunrouter.Request) error {
			err := next(w, req)
			if err != nil {
				logger.Error("Handler returned an error",
					zap.String("method", req.Method),
					zap.String("route", req.Route()),
					zap.Error(err))
			}
			return err
		}
	}
}
