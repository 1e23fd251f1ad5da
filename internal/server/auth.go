package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/mietwerk/mietwerk/internal/auth/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

func (s *Server) Register(c *gin.Context) {
	var req persondomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	person, err := s.personSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	personID := person.ID
	_ = s.auditSvc.Record(c.Request.Context(), &personID, "person.register", "person", person.ID.String(), nil)

	c.JSON(http.StatusCreated, person)
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Session.Token, result.Session.ExpiresAt)

	c.JSON(http.StatusOK, result.Person)
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}
