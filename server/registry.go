package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// listModels is the public model listing: deduplicated catalog entries whose
// source has a credential configured.
func (s *Server) listModels(c *gin.Context) {
	models, err := s.registry.AvailableModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models, "count": len(models)})
}

// registrySnapshot returns the full catalog snapshot, including models from
// sources without credentials.
func (s *Server) registrySnapshot(c *gin.Context) {
	snap, err := s.registry.Registry(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) availableModels(c *gin.Context) {
	models, err := s.registry.AvailableModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models, "count": len(models)})
}

func (s *Server) modelsBySource(c *gin.Context) {
	models, err := s.registry.ModelsBySource(c.Request.Context(), c.Param("source"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": c.Param("source"), "models": models, "count": len(models)})
}

// modelInfo looks up one model. Model ids contain slashes, so the route uses
// a wildcard and the leading separator is trimmed here.
func (s *Server) modelInfo(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	model, err := s.registry.GetModelInfo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// refreshRegistry forces a rebuild from every source.
func (s *Server) refreshRegistry(c *gin.Context) {
	snap, err := s.registry.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"refreshed":   true,
		"count":       len(snap.Models),
		"sources":     snap.Sources,
		"lastUpdated": snap.LastUpdated,
	})
}
