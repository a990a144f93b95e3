// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/BallotDesk/ballotdesk-go/internal/application/container"
	"github.com/BallotDesk/ballotdesk-go/internal/presentation/http/handlers"
	"github.com/BallotDesk/ballotdesk-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	voterHandlers := handlers.NewVoterHandlers(c.VoterService, c.Logger, c.PerfTracker)
	electionHandlers := handlers.NewElectionHandlers(c.ElectionService, c.Logger)
	notificationHandlers := handlers.NewNotificationHandlers(c.NotificationService, c.Broadcaster, c.Logger)
	opsHandlers := handlers.NewOpsHandlers(c.OpsBroadcaster, c.Logger, c.PerfTracker)

	r.GET("/health", opsHandlers.Health)

	api := r.Group("/api/v1")
	{
		// Credential verification is the only unauthenticated voter route.
		api.POST("/auth/login", voterHandlers.Login)

		// Admin surface. Fronted by the deployment's admin gateway; no
		// voter token applies here.
		admin := api.Group("/admin")
		{
			admin.POST("/elections", electionHandlers.CreateElection)
			admin.GET("/elections", electionHandlers.ListElections)
			admin.GET("/elections/:id", electionHandlers.GetElection)
			admin.POST("/elections/:id/schedule", electionHandlers.ScheduleElection)
			admin.GET("/elections/:electionId/voters", voterHandlers.ListVoters)

			admin.POST("/voters", voterHandlers.CreateVoter)
			admin.POST("/voters/import", voterHandlers.BulkImport)
			admin.GET("/voters/:id", voterHandlers.GetVoter)
			admin.PATCH("/voters/:id/status", voterHandlers.UpdateStatus)
			admin.POST("/voters/:id/reissue-key", voterHandlers.ReissueKey)
			admin.DELETE("/voters/:id", voterHandlers.DeleteVoter)

			admin.POST("/notifications", notificationHandlers.Create)
			admin.POST("/notifications/bulk", notificationHandlers.CreateBulk)

			admin.GET("/ops/feed", opsHandlers.Feed)
		}

		// Recipient-scoped routes read the subject from the session token.
		me := api.Group("/notifications")
		me.Use(middleware.VoterAuthMiddleware())
		{
			me.GET("", notificationHandlers.List)
			me.GET("/unread-count", notificationHandlers.UnreadCount)
			me.POST("/mark-read", notificationHandlers.MarkRead)
			me.DELETE("/:id", notificationHandlers.Delete)
			me.GET("/stream", notificationHandlers.Stream)
		}
	}

	return r
}
