package routes

import (
	"net/http"

	"github.com/Krish-Depani/ghost-ai-server/controllers"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth  *controllers.AuthController
	OAuth *controllers.OAuthController
	User  *controllers.UserController
	Chat  *controllers.ChatController
}

func SetupRoutes(router *gin.Engine, ctl Controllers) {
	requireAuth := ctl.Auth.AuthMiddleware()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", ctl.Auth.Register)
		auth.POST("/verify", ctl.Auth.Verify)
		auth.POST("/login", ctl.Auth.Login)
		auth.POST("/logout", requireAuth, ctl.Auth.Logout)
		auth.POST("/forgot-password", ctl.Auth.ForgotPassword)
		auth.POST("/reset-password", ctl.Auth.ResetPassword)

		auth.GET("/google/login", ctl.OAuth.GoogleLogin)
		auth.GET("/google/connect", requireAuth, ctl.OAuth.GoogleConnect)
		auth.GET("/google/callback", ctl.OAuth.GoogleCallback)
	}

	user := router.Group("/auth/user")
	{
		user.GET("/me", requireAuth, ctl.User.GetCurrentUser)
		user.GET("/sessions", requireAuth, ctl.User.GetActiveSessions)
		user.POST("/sessions/logout-others", requireAuth, ctl.User.LogoutOthers)
		user.PUT("/name", requireAuth, ctl.User.UpdateName)
		user.PUT("/password", requireAuth, ctl.User.UpdatePassword)
		user.PUT("/theme", requireAuth, ctl.User.UpdateTheme)
		user.POST("/email", requireAuth, ctl.User.RequestEmailChange)
		user.GET("/email/verify/:token", ctl.User.VerifyEmailChange)
		user.POST("/export", requireAuth, ctl.User.ExportChat)
		user.DELETE("", requireAuth, ctl.User.DeleteAccount)
	}

	chat := router.Group("/chat", requireAuth)
	{
		chat.GET("/history", ctl.Chat.History)
		chat.POST("/stream", ctl.Chat.Stream)
	}
}
