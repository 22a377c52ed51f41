package opstate

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds /state, /state/:id, and /state/stats to an Echo
// group, exactly the surface the teacher's statemanager.Manager exposes
// (statemanager/handlers.go).
func (t *Tracker) RegisterRoutes(g *echo.Group) {
	g.GET("/state", t.handleList)
	g.GET("/state/:id", t.handleGet)
	g.GET("/state/stats", t.handleStats)
}

func (t *Tracker) handleList(c echo.Context) error {
	return c.JSON(http.StatusOK, t.List())
}

func (t *Tracker) handleGet(c echo.Context) error {
	id := c.Param("id")
	b := t.Get(id)
	if b == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "batch not found"})
	}
	return c.JSON(http.StatusOK, b)
}

func (t *Tracker) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, t.Stats())
}
