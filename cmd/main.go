package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stackvault/stackvault-backend/internal/apikey"
	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/middleware"
	"github.com/stackvault/stackvault-backend/internal/pkg/pubsub"
	pkgws "github.com/stackvault/stackvault-backend/internal/pkg/ws"
	"github.com/stackvault/stackvault-backend/internal/social"
	"github.com/stackvault/stackvault-backend/internal/stacks"
	"github.com/stackvault/stackvault-backend/internal/transaction"
	"github.com/stackvault/stackvault-backend/internal/wallet"
	"github.com/stackvault/stackvault-backend/internal/ws"
)

func main() {
	setupViper()
	setupZerolog()

	db := setupDb()

	cipher, err := keymgmt.NewSecretCipher(viper.GetString("MASTER_ENCRYPTION_SECRET"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize secret cipher")
	}

	network, err := stacks.NetworkByName(viper.GetString("STACKS_NETWORK"), viper.GetString("STACKS_NODE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve stacks network")
	}
	chainClient := stacks.NewNodeClient(network.NodeURL, 10*time.Second)

	events := setupEventPublisher()
	if closer, ok := events.(*pubsub.Publisher); ok {
		defer closer.Close()
	}

	notificationHub := pkgws.NewNotificationHub()

	walletService := wallet.NewService(db, cipher, network.AddressVersion, viper.GetInt("WALLET_LIMIT_PER_USER"))
	builder := transaction.NewBuilder(walletService, chainClient, network, viper.GetUint64("STX_TRANSFER_FEE"))
	tracker := transaction.NewTracker(db, chainClient, events, notificationHub)
	transactionService := transaction.NewService(builder, tracker)
	socialService := social.NewService(db, walletService, network.AddressVersion, viper.GetString("SOCIAL_DERIVATION_SALT"))
	apiKeyService := apikey.NewService(db)

	apiRouter := gin.Default()
	middleware.RegisterGlobalMiddleware(apiRouter)

	auth := middleware.BearerAuth(viper.GetString("JWT_SECRET"))
	routerGroup := apiRouter.Group("/stackvault-api")

	wallet.RegisterRoutes(routerGroup, walletService, auth)
	transaction.RegisterRoutes(routerGroup, transactionService, auth)
	social.RegisterRoutes(routerGroup, socialService, auth)
	apikey.RegisterRoutes(routerGroup, apiKeyService, auth)
	ws.RegisterRoutes(routerGroup, notificationHub, auth)

	server := &http.Server{
		Addr:         viper.GetString("PORT"),
		Handler:      apiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func setupDb() *gorm.DB {
	dbUrl := viper.GetString("DB_URL")

	db, err := gorm.Open(postgres.Open(dbUrl), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	sqlDb, _ := db.DB()
	sqlDb.SetMaxOpenConns(50)
	sqlDb.SetConnMaxLifetime(time.Minute * 10)

	return db
}

func setupEventPublisher() transaction.EventPublisher {
	projectId := viper.GetString("GOOGLE_PROJECT_ID")
	if projectId == "" {
		log.Info().Msg("No GOOGLE_PROJECT_ID configured, transaction events will not be published")
		return transaction.NoopPublisher{}
	}

	publisher, err := pubsub.NewPublisher(context.Background(), projectId)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pubsub publisher")
	}
	return publisher
}

func setupViper() {
	viper.AutomaticEnv()
	viper.SetConfigFile("./.env")
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", ":8080")
	viper.SetDefault("STACKS_NETWORK", "testnet")
	viper.SetDefault("STACKS_NODE_URL", "http://localhost:3999")
	viper.SetDefault("WALLET_LIMIT_PER_USER", 5)
	viper.SetDefault("STX_TRANSFER_FEE", 300)
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
