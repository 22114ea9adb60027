package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lingdb/lingdb/migration"
)

/*
 * ============================================================================
 * Migration HTTP control surface (SPEC_FULL.md §6 [EXPANSION])
 * ============================================================================
 *
 * Mirrors CLUSTER GETSLOTMIGRATIONS / CLUSTER CANCELSLOTMIGRATIONS for
 * operators who'd rather curl an HTTP endpoint than speak RESP, the same way
 * the teacher's root-level main.go demo shows gin fronting the key-value
 * store. This one fronts cluster.MigrationController instead of a toy
 * in-memory map.
 */

// StartHTTPAdmin starts the gin-based migration admin HTTP server on addr.
// A no-op (returns nil immediately) if cluster mode isn't enabled on this
// node. Blocks, so call it in its own goroutine.
func (s *Server) StartHTTPAdmin(addr string) error {
	if s.cluster == nil {
		return nil
	}
	mc := s.cluster.MigrationController()
	if mc == nil {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/cluster/migrations", func(c *gin.Context) {
		c.JSON(http.StatusOK, mc.GetSlotMigrations())
	})

	router.POST("/cluster/migrations/:name/cancel", func(c *gin.Context) {
		name := migration.JobName(c.Param("name"))
		if ok := mc.CancelSlotMigrationByName(name); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no cancellable migration with that name"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	})

	return router.Run(addr)
}
