package main

import (
	"log"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/router"
	"dormlink-backend/internal/database"
	"dormlink-backend/internal/env"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/queue"
	"dormlink-backend/internal/session"
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

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		nil,
		nil,
		[]string{"http://localhost:3000", env.Get(env.WebUrl)},
		router.UtilsRoutes("/api/public/v1"),
		router.HistoryPublicRoutes("/api/public/v1"),
	)

	server.Run()
}
