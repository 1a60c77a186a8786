package bootstrap

import (
	"context"
	"fmt"

	"github.com/krobus00/trading-service/internal/auth"
	"github.com/krobus00/trading-service/internal/broker"
	"github.com/krobus00/trading-service/internal/config"
	wsHandler "github.com/krobus00/trading-service/internal/handler/session/ws"
	"github.com/krobus00/trading-service/internal/infrastructure"
	"github.com/krobus00/trading-service/internal/service/fanout"
	"github.com/krobus00/trading-service/internal/session"
	"github.com/krobus00/trading-service/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartSessionGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	bridge := broker.NewJetStreamBridge(js, config.Env.NatsJetstream.TimeoutHandler)
	err = bridge.InitOrderStream(ctx)
	util.ContinueOrFatal(err)

	registry := session.NewRegistry()

	fanoutSvc := fanout.NewFanoutService(registry, bridge)
	err = fanoutSvc.Subscribe(ctx)
	util.ContinueOrFatal(err)

	httpMux := infrastructure.NewHealthMux(nil)
	handler := wsHandler.NewSessionWSHandler(registry, wsHandler.AuthenticateFromRequest(auth.ValidateAPIKey))
	handler.Register(httpMux)

	httpCfg := infrastructure.DefaultHTTPServerConfig("session_gateway")
	httpCfg.ShutdownTimeout = config.Env.GracefulShutdownTimeout
	// websocket connections outlive ordinary request deadlines
	httpCfg.ReadTimeout = -1
	httpCfg.WriteTimeout = -1
	httpCfg.IdleTimeout = -1
	httpServer := infrastructure.NewHTTPServerWithConfig(httpCfg, httpMux)

	go func() {
		if err := httpServer.Start(); err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("session gateway started on %s", httpCfg.Addr))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
