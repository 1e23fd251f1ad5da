package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

func (s *Server) Me(c *gin.Context) {
	person, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, person)
}

func (s *Server) UpdateMe(c *gin.Context) {
	person, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req persondomain.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.personSvc.Modify(c.Request.Context(), person.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) ChangePassword(c *gin.Context) {
	person, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req persondomain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.personSvc.ChangePassword(c.Request.Context(), person.ID, req); err != nil {
		AbortWithError(c, err)
		return
	}

	personID := person.ID
	_ = s.auditSvc.Record(c.Request.Context(), &personID, "person.change_password", "person", person.ID.String(), nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) DeleteMe(c *gin.Context) {
	person, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.personSvc.Delete(c.Request.Context(), person.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) MyAuditLog(c *gin.Context) {
	person, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := s.auditSvc.ListForActor(c.Request.Context(), person.ID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
