package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
)

func (s *Server) CreateBuilding(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req buildingdomain.CreateBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	view, err := s.buildingSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (s *Server) ListBuildings(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	views, err := s.buildingSvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"buildings": views})
}

func (s *Server) GetBuilding(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	view, err := s.buildingSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) ModifyBuilding(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req buildingdomain.ModifyBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.buildingSvc.Modify(c.Request.Context(), actor, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeleteBuilding(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.buildingSvc.Delete(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type assignTenantRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Residents *int   `json:"residents"`
}

func (s *Server) AssignTenant(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	buildingID, ok := parseID(c, "id")
	if !ok {
		return
	}
	flatID, ok := parseID(c, "flatId")
	if !ok {
		return
	}

	var req assignTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.flatSvc.AssignTenant(c.Request.Context(), actor, flatdomain.AssignTenantRequest{
		BuildingID:      buildingID,
		FlatID:          flatID,
		TenantEmail:     req.Email,
		TenantFirstName: req.FirstName,
		TenantLastName:  req.LastName,
		Residents:       req.Residents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := actor.ID
	_ = s.auditSvc.Record(c.Request.Context(), &actorID, "flat.assign_tenant", "flat", updated.ID.String(), map[string]any{
		"building_id": buildingID.String(),
	})

	c.JSON(http.StatusOK, updated)
}
