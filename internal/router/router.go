package router

import (
	"time"

	"github.com/TraderJoe97/stackflow/internal/handlers"
	"github.com/TraderJoe97/stackflow/internal/middleware"
	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/TraderJoe97/stackflow/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Hub      *handlers.Hub
	Notifier *services.Notifier
}

func New(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Total-Count", "X-Page-Size", "X-Current-Page", "X-Total-Pages"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	account := &handlers.AccountController{DB: deps.DB, Notifier: deps.Notifier}
	users := &handlers.UsersController{DB: deps.DB, Notifier: deps.Notifier}
	roles := &handlers.RolesController{DB: deps.DB}
	projects := &handlers.ProjectsController{DB: deps.DB, Notifier: deps.Notifier}
	tickets := &handlers.TicketsController{DB: deps.DB, Notifier: deps.Notifier}
	comments := &handlers.CommentsController{DB: deps.DB, Notifier: deps.Notifier}
	ws := &handlers.WebSocketController{Hub: deps.Hub}

	authenticated := middleware.AuthMiddleware(deps.DB)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	ticketEditors := middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", authenticated, ws.Connect)

		auth := api.Group("/auth")
		{
			auth.POST("/register", account.Register)
			auth.POST("/login", account.Login)
			auth.GET("/me", authenticated, account.Me)
			auth.PUT("/username", authenticated, account.UpdateUsername)
			auth.PUT("/password", authenticated, account.UpdatePassword)
			auth.DELETE("/account", authenticated, account.DeleteAccount)
		}

		usersGroup := api.Group("/users", authenticated)
		{
			usersGroup.GET("", users.ListUsers)
			usersGroup.GET("/pending", adminOnly, users.ListPendingUsers)
			usersGroup.GET("/:id", users.GetUser)
			usersGroup.PUT("/:id/verify", adminOnly, users.VerifyUser)
			usersGroup.PUT("/:id/role", adminOnly, users.UpdateUserRole)
			usersGroup.DELETE("/:id", adminOnly, users.DeleteUser)
		}

		rolesGroup := api.Group("/roles", authenticated, adminOnly)
		{
			rolesGroup.GET("", roles.ListRoles)
			rolesGroup.GET("/:id", roles.GetRole)
			rolesGroup.POST("", roles.CreateRole)
			rolesGroup.PUT("/:id", roles.UpdateRole)
			rolesGroup.DELETE("/:id", roles.DeleteRole)
		}

		projectsGroup := api.Group("/projects", authenticated)
		{
			projectsGroup.GET("", projects.ListProjects)
			projectsGroup.GET("/:id", projects.GetProject)
			projectsGroup.POST("", adminOnly, projects.CreateProject)
			projectsGroup.PUT("/:id", adminOnly, projects.UpdateProject)
			projectsGroup.DELETE("/:id", adminOnly, projects.DeleteProject)
		}

		ticketsGroup := api.Group("/tickets", authenticated)
		{
			ticketsGroup.GET("", tickets.ListTickets)
			ticketsGroup.GET("/:id", tickets.GetTicket)
			ticketsGroup.POST("", ticketEditors, tickets.CreateTicket)
			ticketsGroup.PUT("/:id", ticketEditors, tickets.UpdateTicket)
			ticketsGroup.PUT("/:id/status", tickets.UpdateTicketStatus)
			ticketsGroup.DELETE("/:id", ticketEditors, tickets.DeleteTicket)

			ticketsGroup.GET("/:id/comments", comments.ListForTicket)
			ticketsGroup.POST("/:id/comments", comments.CreateComment)
		}

		commentsGroup := api.Group("/comments", authenticated)
		{
			commentsGroup.GET("/:id", comments.GetComment)
			commentsGroup.PUT("/:id", comments.UpdateComment)
			commentsGroup.DELETE("/:id", comments.DeleteComment)
		}
	}

	return r
}
