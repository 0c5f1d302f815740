package main

import (
	"log"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/router"
	"dormlink-backend/internal/database"
	"dormlink-backend/internal/env"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/queue"

	"github.com/go-redis/redis/v8"
)

func main() {
	internaljwt.SetRoleSecrets(env.MustGet(env.TenantSecretKey), env.MustGet(env.AdminSecretKey))

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

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		redisClient,
		[]string{"http://localhost:3000", env.Get(env.WebUrl)},
		router.UtilsRoutes("/api/admin/v1"),
		router.AdminRoutes("/api/admin/v1"),
	)

	server.Run()
}
