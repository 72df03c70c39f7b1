//go:build wireinject
// +build wireinject

package main

import (
	"barter_backend/internal/ai"
	"barter_backend/internal/app"
	"barter_backend/internal/auth"
	"barter_backend/internal/chat"
	"barter_backend/internal/config"
	"barter_backend/internal/deck"
	"barter_backend/internal/filestorage"
	"barter_backend/internal/jobs"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/platform/database"
	"barter_backend/internal/platform/elasticsearch"
	"barter_backend/internal/platform/logger"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"
	"barter_backend/internal/swipe"
	"barter_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	logger.New,
	provideDB,
	database.NewTransactor,
	elasticsearch.NewClient,
)

var userSet = wire.NewSet(
	auth.NewJWTService,
	auth.NewInMemoryBlocklistService,
	wire.Bind(new(auth.TokenBlocklistService), new(*auth.InMemoryBlocklistService)),
	user.NewGORMRepository,
	user.NewService,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(shared.UserReader), new(*user.ServiceImplementation)),
)

var listingSet = wire.NewSet(
	filestorage.NewFileStorageService,
	wire.Bind(new(listing.ImageStore), new(*filestorage.FileStorageService)),
	listing.NewSearchIndexer,
	listing.NewGORMRepository,
	listing.NewService,
	wire.Bind(new(listing.Service), new(*listing.ServiceImplementation)),
	wire.Bind(new(listing.IndexSyncer), new(*listing.ServiceImplementation)),
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		userSet,
		listingSet,

		presence.NewHub,
		wire.Bind(new(presence.Notifier), new(*presence.Hub)),
		wire.Bind(new(chat.Registry), new(*presence.Hub)),
		auth.NewTokenAuthenticator,
		wire.Bind(new(shared.Authenticator), new(*auth.TokenAuthenticator)),

		message.NewGORMRepository,
		match.NewGORMRepository,
		match.NewService,
		wire.Bind(new(match.Service), new(*match.ServiceImplementation)),
		swipe.NewGORMRepository,
		swipe.NewService,
		wire.Bind(new(swipe.Service), new(*swipe.ServiceImplementation)),
		deck.NewService,
		wire.Bind(new(deck.Service), new(*deck.ServiceImplementation)),
		chat.NewService,
		wire.Bind(new(chat.Service), new(*chat.ServiceImplementation)),

		ai.NewHTTPClient,
		ai.NewGeminiClient,
		wire.Bind(new(ai.TextGenerator), new(*ai.GeminiClient)),
		ai.NewVisionClient,
		wire.Bind(new(ai.ImageClassifier), new(*ai.VisionClient)),
		ai.NewService,
		wire.Bind(new(ai.Service), new(*ai.ServiceImplementation)),

		auth.NewHandler,
		user.NewHandler,
		deck.NewHandler,
		listing.NewHandler,
		swipe.NewHandler,
		match.NewHandler,
		chat.NewHandler,
		ai.NewHandler,
		wire.Struct(new(app.Handlers), "*"),

		provideOverdueCounter,
		jobs.NewMatchExpiryAuditJob,
		app.NewServer,
	)
	return nil, nil, nil
}

// initializeSync wires the listing service for the sync-listings command.
func initializeSync(cfg *config.Config) (*syncCommand, func(), error) {
	wire.Build(
		platformSet,
		userSet,
		listingSet,
		wire.Struct(new(syncCommand), "*"),
	)
	return nil, nil, nil
}
