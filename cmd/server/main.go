package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/auth"
	"github.com/ymatsuda/taskboard/internal/config"
	"github.com/ymatsuda/taskboard/internal/database"
	"github.com/ymatsuda/taskboard/internal/events"
	"github.com/ymatsuda/taskboard/internal/handlers"
	"github.com/ymatsuda/taskboard/internal/middleware"
	"github.com/ymatsuda/taskboard/internal/realtime"
	"github.com/ymatsuda/taskboard/internal/repository"
	"github.com/ymatsuda/taskboard/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Shared session verifier for both transports
	tokens := auth.NewTokenManager(cfg.SessionSecret)

	// Repositories and services
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	taskService := services.NewTaskService(taskRepo, userRepo)

	// Event broadcaster and realtime channel
	hub := events.NewHub()
	channel := realtime.NewChannelHandler(hub, tokens)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, tokens, cfg.IsProduction())
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, hub)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Taskboard API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public except /me)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", middleware.RequireAuth(tokens), authHandler.GetCurrentUser)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth(tokens))
		{
			users.GET("", userHandler.ListUsers)
			users.PATCH("/me", userHandler.UpdateMe)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(tokens))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTask(taskService), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTask(taskService), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTask(taskService), taskHandler.DeleteTask)
		}

		// Realtime channel: handshake auth is best-effort, never a gate
		api.GET("/ws", channel.Handle)
	}

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
