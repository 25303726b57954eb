package routes

import (
	"net/http"

	"faculty-ranker-api/controllers"
	"faculty-ranker-api/middleware"
	"faculty-ranker-api/models"
	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth       *controllers.AuthController
	Faculty    *controllers.FacultyController
	Moderation *controllers.ModerationController
	Users      *controllers.UserController
	Images     *controllers.ImageController

	Tokens   *services.TokenIssuer
	Resolver middleware.UserResolver
	// Limiter is optional; nil disables per-IP limiting on auth and write routes.
	Limiter *middleware.IPRateLimiter
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	limited := func(c *gin.Context) { c.Next() }
	if h.Limiter != nil {
		limited = middleware.RateLimitMiddleware(h.Limiter)
	}
	auth := middleware.AuthMiddleware(h.Tokens, h.Resolver)
	admin := middleware.RequireRole(models.RoleAdmin)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"status":  "ok",
				"message": "Faculty Ranker API is running",
			})
		})

		// Authentication
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/request-otp", limited, h.Auth.RequestOTP)
			authGroup.POST("/verify-otp", limited, h.Auth.VerifyOTP)
			authGroup.POST("/signin", limited, h.Auth.SignIn)
			authGroup.GET("/google", h.Auth.GoogleLogin)
			authGroup.GET("/google/callback", h.Auth.GoogleCallback)
			authGroup.POST("/logout", auth, h.Auth.Logout)
		}

		// Faculty catalogue, public reads
		faculty := v1.Group("/faculty")
		{
			faculty.GET("", h.Faculty.ListFaculty)
			faculty.GET("/search", h.Faculty.SearchFaculty)
			faculty.GET("/details", h.Faculty.GetFacultyByName)

			// Static routes must stay ahead of /:id
			faculty.GET("/unverified", auth, admin, h.Moderation.ListUnverified)

			faculty.GET("/:id", h.Faculty.GetFaculty)

			// Authenticated
			faculty.POST("", auth, limited, h.Faculty.AddFaculty)
			faculty.POST("/upload", auth, limited, h.Images.UploadImage)
			faculty.POST("/:id/rate", auth, limited, h.Faculty.RateFaculty)
			faculty.GET("/:id/has-rated", auth, h.Faculty.HasRated)

			// Admin only
			faculty.PUT("/:id/verify", auth, admin, h.Moderation.VerifyFaculty)
			faculty.DELETE("/:id", auth, admin, h.Moderation.DeleteFaculty)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(auth)
		{
			protected.GET("/profile", h.Users.GetProfile)
			protected.GET("/dashboard", h.Users.GetDashboard)

			users := protected.Group("/users", admin)
			{
				users.GET("", h.Users.ListUsers)
				users.PUT("/:id/ban", h.Users.SetBanned)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
