package server

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/mietwerk/mietwerk/internal/observability/context"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

const contextPersonKey = "person"

// AuthRequired resolves the session cookie to a person and stores it on
// the gin context for the handlers downstream.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		person, err := s.authsvc.Resolve(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPersonKey, person)
		c.Request = c.Request.WithContext(obscontext.WithActorID(c.Request.Context(), person.ID.String()))
		c.Next()
	}
}

func currentPerson(c *gin.Context) (persondomain.Person, bool) {
	value, exists := c.Get(contextPersonKey)
	if !exists {
		return persondomain.Person{}, false
	}
	person, ok := value.(persondomain.Person)
	return person, ok
}
