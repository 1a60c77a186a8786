package bootstrap

import (
	"context"

	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/config"
	"github.com/krobus00/trading-service/internal/exchange"
	"github.com/krobus00/trading-service/internal/infrastructure"
	"github.com/krobus00/trading-service/internal/locker"
	"github.com/krobus00/trading-service/internal/repository"
	"github.com/krobus00/trading-service/internal/service/executor"
	"github.com/krobus00/trading-service/internal/util"
	"github.com/krobus00/trading-service/internal/vault"
	"github.com/spf13/cobra"
)

func StartExecutionWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["trading"])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, config.Env.Database["trading"].PingInterval)

	redisClient, err := infrastructure.NewRedisClient(ctx, config.Env.Redis["cache"])
	util.ContinueOrFatal(err)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	bridge := broker.NewJetStreamBridge(js, config.Env.NatsJetstream.TimeoutHandler)
	err = bridge.InitOrderStream(ctx)
	util.ContinueOrFatal(err)

	credentialVault, err := vault.New(config.Env.Vault.EncryptionKey)
	util.ContinueOrFatal(err)

	orderCommandRepo := repository.NewOrderCommandRepository(db)
	orderEventRepo := repository.NewOrderEventRepository(db)
	userCredentialRepo := repository.NewUserCredentialRepository(db)

	executorSvc := executor.NewExecutorService(
		orderCommandRepo,
		orderEventRepo,
		userCredentialRepo,
		credentialVault,
		exchange.NewBinanceClient(config.Env.Exchange),
		locker.NewRedisOrderLocker(redisClient),
		bridge,
	)

	err = executorSvc.Subscribe(ctx)
	util.ContinueOrFatal(err)

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"database": func(ctx context.Context) error {
			cancel()
			return db.Close()
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
