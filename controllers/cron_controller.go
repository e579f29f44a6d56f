package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/services"
)

// Sweeper runs one deadline sweep
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepResult, error)
}

// CronController serves the endpoints driven by the external scheduler
type CronController struct {
	sweeper Sweeper
}

func NewCronController(sweeper Sweeper) *CronController {
	return &CronController{sweeper: sweeper}
}

// ConfirmOrders handles GET /api/v1/cron/confirm-orders
func (cc *CronController) ConfirmOrders(c *gin.Context) {
	result, err := cc.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Deadline sweep completed"
	if result.Skipped {
		message = "Another sweep is already running"
	}
	respondOK(c, message, result, false)
}
