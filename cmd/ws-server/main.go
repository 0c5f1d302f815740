package main

import (
	"log"
	"time"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/router"
	"dormlink-backend/internal/chat"
	"dormlink-backend/internal/database"
	"dormlink-backend/internal/env"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/queue"
	historyservice "dormlink-backend/internal/service/history"
	"dormlink-backend/internal/session"

	"github.com/go-redis/redis/v8"
)

func main() {
	internaljwt.SetRoleSecrets(env.MustGet(env.TenantSecretKey), env.MustGet(env.AdminSecretKey))
	session.SetSecret([]byte(env.MustGet(env.SessionSecretKey)))

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase(database.Config{
		Region:       env.Get(env.AWSRegion),
		AccessKeyID:  env.Get(env.AWSID),
		SecretKey:    env.Get(env.AWSSecret),
		SessionToken: env.Get(env.AWSToken),
		Endpoint:     env.Get(env.DynamoDBEndpoint),
	})
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     env.Get(env.ChatRedisURL),
		Password: env.Get(env.ChatRedisPass),
		DB:       0,
	})

	idleTTL, err := time.ParseDuration(env.GetOrDefault(env.RoomIdleTTL, "1h"))
	if err != nil {
		log.Fatalf("invalid %s: %v", env.RoomIdleTTL, err)
	}

	registry := chat.NewRegistry()
	adminChannel := chat.NewAdminChannel(registry)
	store := historyservice.NewDynamoRepository(db)
	chatRouter := chat.NewRouter(registry, store, adminChannel)
	resolver := chat.NewResolver(time.Now)
	handler := chat.NewHandler(registry, resolver, chatRouter, adminChannel, store, redisClient)

	handler.SubscribeAdminFeed()
	handler.StartReaper(time.Minute, idleTTL)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		redisClient,
		[]string{"http://localhost:3000", env.Get(env.WebUrl)},
		router.UtilsRoutes("/api/ws/v1"),
		router.ChatRoutes("/api/ws/v1"),
	)

	server.Run()
}
