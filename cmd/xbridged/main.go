package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/xbridge-network/xbridge-daemon/internal/config"
	"github.com/xbridge-network/xbridge-daemon/internal/core/application"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
	"github.com/xbridge-network/xbridge-daemon/internal/infrastructure/chain"
	"github.com/xbridge-network/xbridge-daemon/internal/infrastructure/messenger"
	dbbadger "github.com/xbridge-network/xbridge-daemon/internal/infrastructure/storage/db/badger"
	"github.com/xbridge-network/xbridge-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/xbridge-network/xbridge-daemon/internal/interfaces/hub"
	"github.com/xbridge-network/xbridge-daemon/pkg/bridge"
	"github.com/xbridge-network/xbridge-daemon/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	repoManager, err := newRepoManager()
	if err != nil {
		log.WithError(err).Fatal("error while opening order registry")
	}
	defer repoManager.Close()

	chainSvc := chain.NewService(parseWallets(config.GetString(config.WalletsKey)))
	messengerSvc := messenger.NewHTTPMessenger(config.GetString(config.HubEndpointKey))

	bridgeSvc := application.NewBridgeService(
		repoManager.OrderRepository(), messengerSvc, chainSvc, chainSvc,
	)
	var runtime bridge.Service
	schedulerSvc := application.NewSchedulerService(application.SchedulerOpts{
		OrderRepository: repoManager.OrderRepository(),
		ChainSvc:        chainSvc,
		Dispatcher: func(task func(ctx context.Context) error) error {
			return runtime.Dispatch(task)
		},
		OrderLifetime:       config.GetSeconds(config.OrderLifetimeKey),
		Retention:           config.GetSeconds(config.OrderRetentionKey),
		MaxBroadcastRetries: config.GetInt(config.MaxBroadcastRetriesKey),
	})

	runtime = bridge.NewService(bridge.Opts{
		NumWorkers:    config.GetInt(config.NumWorkersKey),
		TimerInterval: config.GetSeconds(config.TimerIntervalKey),
		OnTick:        schedulerSvc.Tick,
		ErrorHandler: func(err error) {
			log.WithError(err).Warn("bridge task failed")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.GetBool(config.EnableProfilerKey) {
		stats.EnableMemoryStatistics(ctx, config.GetSeconds(config.StatsIntervalKey))
	}

	listenAddr := fmt.Sprintf(":%d", config.GetInt(config.ListenPortKey))
	server := &http.Server{
		Addr:    listenAddr,
		Handler: hub.NewHandler(bridgeSvc, runtime),
	}
	go func() {
		log.Debug("packet interface is listening on " + listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("packet interface stopped")
		}
	}()

	runtimeDone := make(chan error, 1)
	go func() { runtimeDone <- runtime.Start(ctx) }()

	log.Debug("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("shutting down")
	server.Shutdown(ctx)
	runtime.Stop()
	if err := <-runtimeDone; err != nil {
		log.WithError(err).Error("bridge runtime exited with error")
	}
	log.Debug("exiting")
}

func newRepoManager() (ports.RepoManager, error) {
	if config.GetString(config.DBTypeKey) == config.DBInMemory {
		return inmemory.NewRepoManager(), nil
	}
	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	return dbbadger.NewRepoManager(dbDir, log.New())
}

// parseWallets decodes the comma separated currency:host:port:user:password
// entries locating the per-currency wallet daemons. Malformed entries are
// skipped with a warning.
func parseWallets(raw string) map[string]chain.WalletConfig {
	wallets := map[string]chain.WalletConfig{}
	if raw == "" {
		return wallets
	}

	for _, entry := range strings.Split(raw, ",") {
		fields := strings.Split(entry, ":")
		if len(fields) != 5 {
			log.Warnf("skipping malformed wallet entry %q", entry)
			continue
		}
		port, err := strconv.Atoi(fields[2])
		if err != nil {
			log.Warnf("skipping wallet entry %q with invalid port", entry)
			continue
		}
		wallets[fields[0]] = chain.WalletConfig{
			Host:   fields[1],
			Port:   port,
			User:   fields[3],
			Passwd: fields[4],
		}
	}
	return wallets
}
