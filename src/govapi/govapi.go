package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ncatdao/govapi/src/govapi/chain"
	"github.com/ncatdao/govapi/src/govapi/config"
	"github.com/ncatdao/govapi/src/govapi/data"
	"github.com/ncatdao/govapi/src/govapi/jobs"
	"github.com/ncatdao/govapi/src/govapi/service"
	"github.com/ncatdao/govapi/src/govapi/webserver"
	"github.com/ncatdao/govapi/src/govapi/weights"
)

func main() {
	cfg := config.Load()

	lgr, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap: %v", err)
	}
	defer lgr.Sync()

	db := data.MustMySQL(cfg.MySQLDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle, err := chain.Dial(ctx, cfg.RPCURL, cfg.TokenAddress, cfg.RouterAddress)
	if err != nil {
		log.Fatalf("chain: %v", err)
	}
	defer oracle.Close()

	sink := data.NewSink(rdb)
	calc := weights.New(oracle, cfg.TokensPerVote(), cfg.MinProposalBalance())
	svc := service.New(service.Params{
		Store:     data.NewStore(db),
		Weights:   calc,
		Sink:      sink,
		Logger:    lgr,
		Blacklist: cfg.Blacklist,
	})

	go jobs.RunSweeper(ctx, svc, cfg.SweepInterval, lgr)

	price := chain.NewPriceTracker(oracle, sink, cfg.TokensPerVote(), lgr)
	go price.Run(ctx, cfg.PriceInterval)

	if cfg.WSURL != "" {
		go chain.RunTransferWatcher(ctx, cfg.WSURL, cfg.TokenAddress, sink, lgr)
	} else {
		lgr.Info("WS_URL not set, transfer watcher disabled")
	}

	router := webserver.New(svc, price)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	lgr.Info("governance API listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
