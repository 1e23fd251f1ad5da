package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListMyFlats(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	views, err := s.flatSvc.ListForTenant(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flats": views})
}

// FlatLandlord exposes the landlord's contact data to the tenant of the
// flat so they know whom to reach about the statement.
func (s *Server) FlatLandlord(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	flatID, ok := parseID(c, "id")
	if !ok {
		return
	}

	landlord, err := s.flatSvc.Landlord(c.Request.Context(), actor, flatID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"first_name": landlord.FirstName,
		"last_name":  landlord.LastName,
		"email":      landlord.Email,
		"phone":      landlord.Phone,
	})
}
