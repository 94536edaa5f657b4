package configuration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/db"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/handler"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/hub"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/identity"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/repo"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/service"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/storage"
)

type Container struct {
	ChatHandler handler.ChatHandler
	Hub         *hub.Hub
	Verifier    identity.Verifier
	Config      Config
	Logger      *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ctx, con, config.ChatDatabase.ConversationsCollection, config.ChatDatabase.MessagesCollection); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	conversationsCol := db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection)
	messagesCol := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)
	usersCol := db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection)

	conversationRepo := repo.NewConversationRepository(conversationsCol, logger)
	messageRepo := repo.NewMessageRepository(messagesCol, conversationsCol, logger)
	userRepo := repo.NewUserRepository(usersCol)

	verifier := identity.NewHTTPVerifier(
		config.Identity.VerifyURL,
		time.Duration(config.Identity.TimeoutSeconds)*time.Second,
		logger,
	)

	presence := hub.NewPresenceRegistry()
	gateway := hub.NewHub(hub.Deps{
		Presence:       presence,
		Verifier:       verifier,
		Users:          userRepo,
		Logger:         logger,
		AllowedOrigins: config.Server.AllowedOrigins,
	})

	pipeline := hub.NewMessagePipeline(conversationRepo, messageRepo, gateway, logger)
	typing := hub.NewTypingRelay(gateway, logger)
	receipts := hub.NewReceiptAggregator(messageRepo, gateway, logger)
	gateway.Attach(pipeline, typing, receipts)

	objectStore, err := storage.NewMinioStore(storage.Config{
		Endpoint:  config.Storage.Endpoint,
		AccessKey: config.Storage.AccessKey,
		SecretKey: config.Storage.SecretKey,
		Bucket:    config.Storage.Bucket,
		UseSSL:    config.Storage.UseSSL,
		PublicURL: config.Storage.PublicURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	chatService := service.NewChatService(conversationRepo, messageRepo, userRepo, gateway, receipts, logger)
	chatHandler := handler.NewChatHandler(chatService, objectStore, logger)

	return &Container{
		ChatHandler: chatHandler,
		Hub:         gateway,
		Verifier:    verifier,
		Config:      *config,
		Logger:      logger,
		mongoClient: con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
