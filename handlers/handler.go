package handlers

import (
	"fmt"
	"net/http"

	"qr-order-api/apperrors"
	"qr-order-api/authz"
	"qr-order-api/logging"
	"qr-order-api/middleware"
	"qr-order-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler carries the injected collaborators shared by all routes.
type Handler struct {
	db       *gorm.DB
	tokens   *middleware.TokenManager
	resolver *authz.Resolver
	orders   *services.OrderService
}

func New(db *gorm.DB, tokens *middleware.TokenManager, resolver *authz.Resolver, orders *services.OrderService) *Handler {
	return &Handler{db: db, tokens: tokens, resolver: resolver, orders: orders}
}

// fail writes the response for a failed operation. Infrastructure details
// are logged but never returned to the client.
func fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.From(c).Error("request failed", "error", err)
		msg = apperrors.ErrInfrastructure.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}

func infra(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrInfrastructure, err)
}
