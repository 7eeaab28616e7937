package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"beccrm/config"
	"beccrm/handlers"
	"beccrm/middleware"
	"beccrm/models"
	"beccrm/monitoring"
)

// Handlers bundles everything Register needs to wire the API.
type Handlers struct {
	Repo       models.Repository
	Auth       *handlers.AuthHandler
	Password   *handlers.PasswordHandler
	Users      *handlers.UserHandler
	Clients    *handlers.ClientHandler
	Membership *handlers.MembershipHandler
	CheckIns   *handlers.CheckInHandler
	Admin      *handlers.AdminHandler
}

// Register mounts all API routes. Three access tiers: public (kiosk and
// auth), staff (any authenticated user) and admin.
func Register(r *gin.Engine, h Handlers) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := r.Group("/api/v1")

	// Public endpoints.
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/password/setup", h.Password.Setup)
	api.GET("/password/validate-token/:token", h.Password.ValidateToken)

	kiosk := api.Group("/kiosk")
	kiosk.Use(middleware.KioskRateLimit(config.AppConfig.KioskRequestsPerMin))
	{
		kiosk.GET("/lookup", h.CheckIns.KioskLookup)
		kiosk.POST("/check-in", h.CheckIns.KioskCheckIn)
	}

	// Staff endpoints.
	staff := api.Group("")
	staff.Use(middleware.RequireAuth(h.Repo))
	{
		staff.GET("/auth/me", h.Auth.Me)
		staff.POST("/auth/change-password", h.Auth.ChangePassword)

		staff.POST("/clients", h.Clients.CreateClient)
		staff.GET("/clients", h.Clients.SearchClients)
		staff.GET("/clients/:id", h.Clients.GetClient)
		staff.PUT("/clients/:id", h.Clients.UpdateClient)
		staff.POST("/clients/:id/tags", h.Clients.AddClientTags)
		staff.DELETE("/clients/:id/tags/:tag", h.Clients.RemoveClientTag)
		staff.POST("/clients/:id/contact-methods", h.Clients.AddContactMethod)
		staff.POST("/clients/:id/consents", h.Clients.AddConsents)
		staff.POST("/clients/:id/notes", h.Clients.AddClientNote)
		staff.GET("/clients/:id/notes", h.Clients.ListClientNotes)
		staff.GET("/tags", h.Clients.ListTags)

		staff.POST("/memberships", h.Membership.CreateMembership)
		staff.GET("/memberships", h.Membership.ListMembershipsByStatus)
		staff.GET("/memberships/expiring", h.Membership.ListExpiringMemberships)
		staff.GET("/memberships/stats", h.Membership.MembershipStats)
		staff.GET("/memberships/plans", h.Membership.ListPlans)
		staff.GET("/memberships/:id", h.Membership.GetMembership)
		staff.PUT("/memberships/:id", h.Membership.UpdateMembership)
		staff.GET("/clients/:id/memberships", h.Membership.ListClientMemberships)
		staff.GET("/clients/:id/memberships/current", h.Membership.GetCurrentMembership)

		staff.POST("/check-ins", h.CheckIns.StaffCheckIn)
		staff.GET("/check-ins", h.CheckIns.ListRecentCheckIns)
		staff.GET("/check-ins/stats", h.CheckIns.CheckInStats)
		staff.GET("/clients/:id/check-ins", h.CheckIns.ListClientCheckIns)
	}

	// Admin endpoints.
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(h.Repo), middleware.RequireAdmin())
	{
		admin.POST("/users", h.Users.CreateUser)
		admin.GET("/users", h.Users.ListUsers)
		admin.PUT("/users/:id", h.Users.UpdateUser)
		admin.DELETE("/users/:id", h.Users.DeactivateUser)
		admin.POST("/password/initiate-reset", h.Password.InitiateReset)

		admin.DELETE("/clients/:id", h.Clients.DeleteClient)
		admin.DELETE("/memberships/:id", h.Membership.DeleteMembership)

		admin.GET("/webhooks", h.Admin.ListWebhooks)
		admin.POST("/webhooks/:id/requeue", h.Admin.RequeueWebhook)
		admin.GET("/audit-log", h.Admin.ListAuditLog)
		admin.GET("/backups", h.Admin.BackupStatus)
		admin.POST("/backups", h.Admin.TriggerBackup)

		admin.POST("/clients/:id/ggleap-link", h.Admin.LinkGgleapUser)
		admin.DELETE("/clients/:id/ggleap-link", h.Admin.UnlinkGgleapUser)
		admin.PUT("/ggleap/groups", h.Admin.UpsertGgleapGroup)

		admin.GET("/dashboard", h.Admin.Dashboard)
	}
}
