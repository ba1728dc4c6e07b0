package web

import (
	"github.com/kozaktomas/vibe-matcher/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	compareHandler := handlers.NewCompareHandler(s.matcher, s.logger)
	selfieHandler := handlers.NewSelfieHandler(s.matcher, s.logger)

	s.router.Get("/health", handlers.HealthCheck)
	s.router.Post("/compare", compareHandler.Compare)
	s.router.Post("/process-selfie", selfieHandler.Process)
}
