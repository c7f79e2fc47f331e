package main

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sniksnak-service/internal/config"
	"sniksnak-service/internal/consent"
	"sniksnak-service/internal/db"
	"sniksnak-service/internal/handlers"
	"sniksnak-service/internal/identity"
	"sniksnak-service/internal/invite"
	"sniksnak-service/internal/middleware"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/moderation"
	"sniksnak-service/internal/notify"
	"sniksnak-service/internal/observability"
	"sniksnak-service/internal/rabbitmq"
	"sniksnak-service/internal/relay"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}

	accountRepo := repositories.NewAccountRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	flagRepo := repositories.NewFlagRepo(database)
	consentRepo := repositories.NewConsentRepo(database)
	groupRepo := repositories.NewGroupRepo(database)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "sniksnak.audit", "sniksnak-service", cfg.Environment, logger)

	registry := identity.NewRegistry()
	if err := resolveSystemAccount(registry, accountRepo, cfg.SystemAccount); err != nil {
		// The service still comes up; relays degrade until the account exists.
		logger.Error("system identity unresolved, relays will degrade", zap.Error(err))
	}

	var imageScanner moderation.ImageScanner
	if cfg.VisionAPIURL != "" {
		vision := moderation.NewHTTPVisionClient(cfg.VisionAPIURL, cfg.VisionAPIKey)
		imageScanner = moderation.NewImageClassifier(vision, logger)
	} else {
		logger.Info("vision api not configured, attachment scanning disabled")
	}

	notifier, err := notify.NewSESNotifier(context.Background(), cfg.SESRegion, cfg.SESSender, logger)
	if err != nil {
		logger.Warn("ses notifier unavailable, advisory email disabled", zap.Error(err))
		notifier = nil
	}

	broker := relay.NewBroker(chatRepo, messageRepo, registry, logger)
	var emailNotifier notify.Notifier
	if notifier != nil {
		emailNotifier = notifier
	}
	scanner := moderation.NewScanner(flagRepo, accountRepo, broker, imageScanner, registry, audit, emailNotifier, logger)
	coordinator := consent.NewCoordinator(accountRepo, consentRepo, broker, audit, logger)
	invites := invite.NewService([]byte(cfg.InviteSecret))

	jwtSecret := []byte(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(accountRepo, invites, jwtSecret, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, accountRepo, flagRepo, coordinator, scanner, audit)
	familyHandler := handlers.NewFamilyHandler(accountRepo, chatRepo, messageRepo, flagRepo, consentRepo, invites, audit)
	consentHandler := handlers.NewConsentHandler(accountRepo, consentRepo, coordinator)
	groupHandler := handlers.NewGroupHandler(groupRepo, messageRepo, scanner)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/auth/redeem-invite", authHandler.RedeemInvite)

	authMiddleware := middleware.AuthMiddleware(jwtSecret)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.POST("/chats/start", authMiddleware, chatHandler.StartChat)
	router.GET("/chats/:chat_id", authMiddleware, chatHandler.GetChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.GET("/chats/:chat_id/messages/:message_id/flags", authMiddleware, chatHandler.ListMessageFlags)
	router.POST("/chats/:chat_id/messages/:message_id/flags", authMiddleware, chatHandler.FlagMessage)

	router.POST("/family/children", authMiddleware, familyHandler.ProvisionChild)
	router.GET("/family/children", authMiddleware, familyHandler.ListChildren)
	router.PUT("/family/children/:child_id/surveillance", authMiddleware, familyHandler.SetSurveillanceTier)
	router.GET("/family/children/:child_id/chats", authMiddleware, familyHandler.ListChildChats)
	router.GET("/family/children/:child_id/chats/:chat_id/messages", authMiddleware, familyHandler.GetChildChatMessages)
	router.GET("/family/children/:child_id/contact-requests", authMiddleware, familyHandler.ListContactRequests)
	router.GET("/family/children/:child_id/flags", authMiddleware, familyHandler.ListChildFlags)

	router.POST("/introductions/accept", authMiddleware, consentHandler.Accept)
	router.POST("/introductions/reject", authMiddleware, consentHandler.Reject)
	router.GET("/introductions/:inviting_child_id/:invited_child_id", authMiddleware, consentHandler.GetIntroduction)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", authMiddleware, groupHandler.PostGroupMessage)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// resolveSystemAccount looks up the configured safety-advisor account and
// creates it when it does not exist yet.
func resolveSystemAccount(registry *identity.Registry, accounts repositories.AccountRepository, username string) error {
	ctx := context.Background()
	err := registry.ResolveSystemAccount(ctx, accounts, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrAccountNotFound) {
		return err
	}

	account, err := accounts.CreateAccount(ctx, username, nil, models.RoleSystem)
	if err != nil {
		return err
	}
	registry.SetSystemAccount(account)
	return nil
}
