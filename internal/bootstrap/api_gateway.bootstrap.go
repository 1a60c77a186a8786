package bootstrap

import (
	"context"
	"fmt"

	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/config"
	tradingHandler "github.com/krobus00/trading-service/internal/handler/trading/http"
	"github.com/krobus00/trading-service/internal/infrastructure"
	"github.com/krobus00/trading-service/internal/repository"
	orderService "github.com/krobus00/trading-service/internal/service/order"
	positionService "github.com/krobus00/trading-service/internal/service/position"
	"github.com/krobus00/trading-service/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartAPIGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database["trading"])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, config.Env.Database["trading"].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	bridge := broker.NewJetStreamBridge(js, config.Env.NatsJetstream.TimeoutHandler)
	err = bridge.InitOrderStream(ctx)
	util.ContinueOrFatal(err)

	orderCommandRepo := repository.NewOrderCommandRepository(db)
	orderEventRepo := repository.NewOrderEventRepository(db)

	orderSvc := orderService.NewOrderService(orderCommandRepo, orderEventRepo, bridge)
	positionSvc := positionService.NewPositionService(orderEventRepo)

	httpMux := infrastructure.NewHealthMux(func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	handler := tradingHandler.NewTradingHTTPHandler(orderSvc, positionSvc)
	handler.Register(httpMux)

	httpCfg := infrastructure.DefaultHTTPServerConfig("api_gateway")
	httpCfg.ShutdownTimeout = config.Env.GracefulShutdownTimeout
	httpServer := infrastructure.NewHTTPServerWithConfig(httpCfg, httpMux)

	go func() {
		if err := httpServer.Start(); err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("api gateway started on %s", httpCfg.Addr))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"database": func(ctx context.Context) error {
			cancel()
			return db.Close()
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
