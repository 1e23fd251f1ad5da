package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
)

type createInvoiceRequest struct {
	FlatID        string  `json:"flat_id"`
	TotalRentPaid float64 `json:"total_rent_paid"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	flatID, err := snowflake.ParseString(req.FlatID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), actor, invoicedomain.CreateInvoiceRequest{FlatID: flatID, TotalRentPaid: req.TotalRentPaid})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice.Summarize())
}

func (s *Server) ListInvoicesForLandlord(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summaries, err := s.invoiceSvc.ListForLandlord(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": summaries})
}

func (s *Server) ListInvoicesForTenant(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summaries, err := s.invoiceSvc.ListForTenant(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": summaries})
}

func (s *Server) GetInvoice(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if c.Query("format") == "pdf" {
		c.Data(http.StatusOK, "application/pdf", invoice.PDF)
		return
	}

	c.JSON(http.StatusOK, invoice.Summarize())
}

func (s *Server) ToggleInvoicePaid(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.TogglePaid(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": invoice.ID, "paid": invoice.Paid})
}
