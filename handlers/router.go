package handlers

import (
	"net/http"

	"filenet-backend/service"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all HTTP routes onto the engine. The same wiring
// serves the binary and the API tests.
func RegisterRoutes(r *gin.Engine, authHandler *AuthHandler, fileHandler *FileHandler, adminHandler *AdminHandler, authService *service.AuthService) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local storage download links. The URL token is the only gate, so
	// the route stays outside RequireAuth.
	r.GET("/public/files/*path", fileHandler.ServePublicFile)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/profile", RequireAuth(authService), authHandler.GetProfile)
		auth.PUT("/profile", RequireAuth(authService), authHandler.UpdateProfile)
	}

	files := r.Group("/api/files", RequireAuth(authService))
	{
		files.POST("/upload", fileHandler.UploadFile)
		files.GET("", fileHandler.ListFiles)
		files.GET("/search", fileHandler.SearchFiles)
		files.GET("/:id", fileHandler.GetFile)
		files.PUT("/:id", fileHandler.UpdateFile)
		files.DELETE("/:id", fileHandler.DeleteFile)
		files.GET("/:id/download", fileHandler.DownloadFile)
		files.GET("/:id/with-metadata", fileHandler.GetFileWithMetadata)
		files.GET("/:id/versions", fileHandler.ListVersions)
		files.POST("/:id/restore/:version", fileHandler.RestoreVersion)
		files.PUT("/:id/share", fileHandler.ShareFile)
	}

	admin := r.Group("/api/admin", RequireAuth(authService), RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/toggle-admin", adminHandler.ToggleAdmin)
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
	}
}
