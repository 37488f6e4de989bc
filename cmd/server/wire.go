// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"workhub_backend/internal/app"
	"workhub_backend/internal/auth"
	"workhub_backend/internal/config"
	"workhub_backend/internal/device"
	"workhub_backend/internal/firebase"
	"workhub_backend/internal/hub"
	"workhub_backend/internal/jobs"
	"workhub_backend/internal/kafka"
	"workhub_backend/internal/notification"
	platformElasticsearch "workhub_backend/internal/platform/elasticsearch"
	"workhub_backend/internal/platform/logger"
	"workhub_backend/internal/shared"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,
		platformElasticsearch.NewClient,
		firebase.NewMessagingService,
		provideCleanup,

		// Auth
		auth.NewJWTTokenService,
		wire.Bind(new(shared.TokenService), new(*auth.JWTTokenService)),

		// Push Hub
		hub.NewHub,
		hub.NewHandler,
		wire.Bind(new(notification.Broadcaster), new(*hub.Hub)),

		// Devices
		device.NewGORMRepository,
		device.NewService,
		wire.Bind(new(device.Service), new(*device.ServiceImplementation)),
		wire.Bind(new(notification.DevicePusher), new(*device.ServiceImplementation)),
		device.NewHandler,

		// Notifications
		notification.NewGORMRepository,
		notification.NewService,
		wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
		notification.NewHandler,

		// Background Components
		jobs.NewRetentionJob,
		kafka.NewConsumer,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
