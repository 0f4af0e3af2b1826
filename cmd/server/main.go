package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"relay-story-server/internal/auth"
	"relay-story-server/internal/book"
	"relay-story-server/internal/config"
	"relay-story-server/internal/db"
	"relay-story-server/internal/logger"
	"relay-story-server/internal/member"
	"relay-story-server/internal/middleware"
	"relay-story-server/internal/notify"
	"relay-story-server/internal/reaction"
	"relay-story-server/internal/worker"
	"relay-story-server/redis"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	config.LoadConfig()
	logger.Setup(config.AppConfig.Environment, os.Stdout)

	// Connect to database
	if err := db.ConnectDb(); err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.CloseDb()

	// Migrate database schema and seed categories
	if err := db.Migrate(db.AppDb); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if err := db.SeedCategories(db.AppDb); err != nil {
		log.Fatal().Err(err).Msg("category seed failed")
	}

	// Initialize Redis; without it events are dropped and nicknames are not cached
	redisClient := redis.InitRedis(context.Background(), config.AppConfig.RedisAddress)
	var publisher notify.Publisher = notify.NopPublisher{}
	if redisClient != nil {
		publisher = notify.NewRedisPublisher(redisClient)
		defer redisClient.Close()
	}

	// Post-commit side effects run on the pool
	pool := worker.NewWorkerPool(config.AppConfig.WorkerPoolSize, config.AppConfig.WorkerPoolSize*64)
	dispatcher := notify.NewDispatcher(publisher, pool)

	memberClient := member.NewClient(config.AppConfig.MemberServiceAddress, config.AppConfig.InternalSecret)
	nicknames := member.NewResolver(memberClient, redis.NewCache(redisClient), config.AppConfig.NicknameCacheTTL)

	// Initialize repository
	bookRepo := book.NewRepository(db.AppDb, config.AppConfig.LockTimeout)
	reactionRepo := reaction.NewRepository(db.AppDb)
	// Initialize service
	bookService := book.NewService(bookRepo, reactionRepo, nicknames, dispatcher)
	reactionService := reaction.NewService(reactionRepo, bookService, nicknames, dispatcher)
	// Initialize handler
	bookHandler := book.NewHandler(bookService)
	reactionHandler := reaction.NewHandler(reactionService)

	authMiddleware := &middleware.Auth{
		Verifier:       auth.NewVerifier(config.AppConfig.JWTSecret),
		InternalSecret: config.AppConfig.InternalSecret,
	}

	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api", authMiddleware.AuthMiddleWare())
	{
		api.POST("/books", bookHandler.Create)
		api.GET("/books/:id", bookHandler.Show)
		api.PATCH("/books/:id", bookHandler.Rename)
		api.DELETE("/books/:id", bookHandler.Delete)
		api.POST("/books/:id/complete", bookHandler.Complete)
		api.POST("/books/:id/sentences", bookHandler.AppendSentence)
		api.PATCH("/books/:id/sentences/:sentenceId", bookHandler.UpdateSentence)
		api.DELETE("/books/:id/sentences/:sentenceId", bookHandler.DeleteSentence)
		api.POST("/books/:id/typing", bookHandler.Typing)

		api.GET("/books/:id/votes", reactionHandler.ShowBookVotes)
		api.POST("/books/:id/votes", reactionHandler.VoteBook)
		api.GET("/sentences/:id/votes", reactionHandler.ShowSentenceVotes)
		api.POST("/sentences/:id/votes", reactionHandler.VoteSentence)

		api.GET("/books/:id/comments", reactionHandler.ShowComments)
		api.POST("/books/:id/comments", reactionHandler.CreateComment)
		api.PATCH("/comments/:id", reactionHandler.UpdateComment)
		api.DELETE("/comments/:id", reactionHandler.DeleteComment)
	}

	// internal use routes
	router.GET("/internal/sentences/:id/book", authMiddleware.InternalAuthMiddleware(), bookHandler.ShowSentenceBook)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Info().Str("port", serverPort).Msg("server listening")
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	// drain queued events before closing redis and the database
	pool.Shutdown()
	log.Info().Msg("server shutdown complete")
}
