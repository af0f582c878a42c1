package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"github.com/nutrikit/nutrikit/internal/authorization"
	invoicedomain "github.com/nutrikit/nutrikit/internal/invoice/domain"
	"github.com/nutrikit/nutrikit/internal/providers/pdf"
	"github.com/nutrikit/nutrikit/internal/upi"
)

type subscribeRequest struct {
	PlanCode string `json:"plan_code"`
}

func (s *Server) Subscribe(c *gin.Context) {
	identity, _ := currentIdentity(c)

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PlanCode = strings.TrimSpace(req.PlanCode)
	if req.PlanCode == "" {
		AbortWithError(c, newValidationError("plan_code", "invalid_plan_code", "plan code is required"))
		return
	}

	resolved, err := s.subSvc.Subscribe(c.Request.Context(), identity.UserID, req.PlanCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resolved})
}

func (s *Server) GetSubscription(c *gin.Context) {
	identity, _ := currentIdentity(c)

	resolved, err := s.subSvc.Resolve(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resolved})
}

type invoiceRequest struct {
	CoachID string `json:"coach_id"`
}

type invoiceResponse struct {
	Invoice     invoicedomain.Invoice `json:"invoice"`
	PaymentLink string                `json:"payment_link,omitempty"`
}

// resolveCoachID picks the billing target: coaches always act on their
// own account, admins may name any coach.
func (s *Server) resolveCoachID(c *gin.Context, requested string) (snowflake.ID, error) {
	identity, _ := currentIdentity(c)
	if !identity.HasRole(authdomain.RoleCoach) && !identity.HasRole(authdomain.RoleAdmin) {
		return 0, ErrForbidden
	}

	requested = strings.TrimSpace(requested)
	if requested == "" {
		return identity.UserID, nil
	}

	coachID, err := snowflake.ParseString(requested)
	if err != nil {
		return 0, newValidationError("coach_id", "invalid_coach_id", "invalid coach id")
	}
	if coachID != identity.UserID && !identity.HasRole(authdomain.RoleAdmin) {
		return 0, ErrForbidden
	}
	return coachID, nil
}

func (s *Server) GetOrCreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	coachID, err := s.resolveCoachID(c, req.CoachID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	inv, err := s.invoiceSvc.GetOrCreate(ctx, coachID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A missing UPI configuration yields an empty link, not an error.
	collection, err := s.settingsSvc.UPICollection(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	link := upi.BuildPayLink(collection.VPA, collection.PayeeName, inv.Amount, inv.Reference)

	c.JSON(http.StatusOK, gin.H{"data": invoiceResponse{Invoice: inv, PaymentLink: link}})
}

func (s *Server) ListOpenInvoices(c *gin.Context) {
	identity, _ := currentIdentity(c)
	if err := s.authzSvc.Authorize(c.Request.Context(), identity, authorization.ObjectInvoice, authorization.ActionInvoiceListAll); err != nil {
		AbortWithError(c, err)
		return
	}

	invoices, err := s.invoiceSvc.ListOpen(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

type verifyRequest struct {
	InvoiceID string `json:"invoice_id"`
}

func (s *Server) VerifyInvoice(c *gin.Context) {
	identity, _ := currentIdentity(c)
	ctx := c.Request.Context()
	if err := s.authzSvc.Authorize(ctx, identity, authorization.ObjectInvoice, authorization.ActionInvoiceVerify); err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice_id", "invalid invoice id"))
		return
	}

	inv, err := s.invoiceSvc.Verify(ctx, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := identity.UserID
	targetID := inv.Reference
	_ = s.auditSvc.Record(ctx, &actorID, "invoice.verified", "invoice", &targetID, map[string]any{
		"amount": inv.Amount,
		"period": inv.Period,
	})

	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_invoice_id", "invalid invoice id"))
		return
	}

	ctx := c.Request.Context()
	var inv invoicedomain.Invoice
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", invoiceID).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	identity, _ := currentIdentity(c)
	if inv.CoachID != identity.UserID && !identity.HasRole(authdomain.RoleAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	collection, err := s.settingsSvc.UPICollection(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var coach authdomain.User
	if err := s.db.WithContext(ctx).First(&coach, "id = ?", inv.CoachID).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdfProvider.GenerateInvoice(ctx, pdf.InvoiceData{
		BusinessName: "Nutrikit",
		CoachName:    coach.DisplayName,
		Reference:    inv.Reference,
		Period:       inv.Period,
		IssueDate:    inv.CreatedAt.Format("2006-01-02"),
		Status:       string(inv.Status),
		ClientCount:  inv.ClientCount,
		Amount:       upi.FormatAmount(inv.Amount),
		UPILink:      upi.BuildPayLink(collection.VPA, collection.PayeeName, inv.Amount, inv.Reference),
		UPIVPA:       collection.VPA,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+inv.Reference+".pdf")
	c.DataFromReader(http.StatusOK, -1, "application/pdf", doc, nil)
}
