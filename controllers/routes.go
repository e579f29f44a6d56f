package controllers

import (
	"github.com/gin-gonic/gin"
)

// Controllers groups the handlers mounted by RegisterRoutes
type Controllers struct {
	Orders      *OrderController
	Returns     *ReturnController
	CreditNotes *CreditNoteController
	Cron        *CronController
	Users       *UserController
	Settings    *SettingsController
}

// RouteAuth holds the guards of each route family. Token validates the JWT, Actor
// resolves the buyer or seller behind it and Cron checks the scheduler secret.
// ManageSettings guards changes to confirmation settings.
type RouteAuth struct {
	Token          gin.HandlerFunc
	Actor          gin.HandlerFunc
	Cron           gin.HandlerFunc
	ManageSettings gin.HandlerFunc
}

// RegisterRoutes mounts the engine endpoints on v1
func RegisterRoutes(v1 *gin.RouterGroup, ctrl Controllers, auth RouteAuth) {
	v1.GET("/cron/confirm-orders", auth.Cron, ctrl.Cron.ConfirmOrders)

	authenticated := v1.Group("", auth.Token)
	{
		authenticated.GET("/users/me", ctrl.Users.GetMyProfile)
		authenticated.PUT("/users/me", ctrl.Users.UpdateMyProfile)
	}

	protected := authenticated.Group("", auth.Actor)

	orders := protected.Group("/orders")
	{
		orders.GET("/:id", ctrl.Orders.GetOrder)
		orders.GET("/:id/history", ctrl.Orders.GetOrderHistory)
		orders.PUT("/:id/confirm", ctrl.Orders.ConfirmOrder)
		orders.POST("/:id/lock", ctrl.Orders.LockOrder)
		orders.PUT("/:id/complete", ctrl.Orders.CompleteOrder)
		orders.PUT("/:id/placed", ctrl.Orders.PlaceOrder)
		orders.PATCH("/:id/cancel", ctrl.Orders.CancelOrder)
		orders.POST("/:id/review", ctrl.Orders.StartReview)
		orders.POST("/:id/issues", ctrl.Orders.ReportIssue)
		orders.POST("/:id/issues/:issueId/resolve", ctrl.Orders.ResolveIssue)
		orders.PATCH("/:id/items/:itemId/confirm", ctrl.Orders.ConfirmItem)
		orders.POST("/:id/items/bulk/confirm", ctrl.Orders.ConfirmItems)
	}

	settings := protected.Group("/order-confirmation-settings")
	{
		settings.GET("", ctrl.Settings.ListConfirmationSettings)
		settings.PUT("", auth.ManageSettings, ctrl.Settings.UpdateConfirmationSettings)
	}

	returns := protected.Group("/returns")
	{
		returns.POST("", ctrl.Returns.CreateReturn)
		returns.POST("/manual", ctrl.Returns.CreateManualReturn)
		returns.GET("/:id", ctrl.Returns.GetReturn)
		returns.POST("/:id/approve", ctrl.Returns.ApproveReturn)
		returns.POST("/:id/reject", ctrl.Returns.RejectReturn)
		returns.POST("/:id/complete", ctrl.Returns.CompleteReturn)
		returns.POST("/:id/refund-method", ctrl.Returns.ChangeRefundMethod)
		returns.POST("/:id/images", ctrl.Returns.UploadReturnImage)
	}

	credits := protected.Group("/credit-notes")
	{
		credits.GET("", ctrl.CreditNotes.ListCreditNotes)
		credits.GET("/:id", ctrl.CreditNotes.GetCreditNote)
		credits.POST("/:id/use", ctrl.CreditNotes.UseCreditNote)
	}
}
