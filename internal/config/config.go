package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// NumWorkersKey is the size of the bridge worker pool
	NumWorkersKey = "NUM_WORKERS"
	// TimerIntervalKey is the period in seconds of the bridge timer loop
	TimerIntervalKey = "TIMER_INTERVAL"
	// OrderLifetimeKey is the inactivity deadline in seconds after which a live order expires
	OrderLifetimeKey = "ORDER_LIFETIME"
	// OrderRetentionKey is how long in seconds a terminal order stays queryable before eviction
	OrderRetentionKey = "ORDER_RETENTION"
	// MaxBroadcastRetriesKey bounds refund broadcast attempts per order
	MaxBroadcastRetriesKey = "MAX_BROADCAST_RETRIES"
	// ListenPortKey is the port the inbound packet interface listens on
	ListenPortKey = "LISTEN_PORT"
	// HubEndpointKey is the URL of the hub node packets are relayed to
	HubEndpointKey = "HUB_ENDPOINT"
	// WalletsKey configures the per-currency wallet daemons as a comma separated
	// list of currency:host:port:user:password entries
	WalletsKey = "WALLETS"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval for printing basic daemon statistics
	StatsIntervalKey = "STATS_INTERVAL"

	// DBInMemory ...
	DBInMemory = "inmemory"
	// DBBadger ...
	DBBadger = "badger"

	DbLocation       = "db"
	ProfilerLocation = "stats"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("xbridge-daemon", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("XBRIDGE")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(NumWorkersKey, 2)
	vip.SetDefault(TimerIntervalKey, 20)
	vip.SetDefault(OrderLifetimeKey, 900)
	vip.SetDefault(OrderRetentionKey, 3600)
	vip.SetDefault(MaxBroadcastRetriesKey, 5)
	vip.SetDefault(ListenPortKey, 9796)
	vip.SetDefault(HubEndpointKey, "http://localhost:9797/packets")
	vip.SetDefault(WalletsKey, "")
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetSeconds reads an integer key as a duration expressed in seconds.
func GetSeconds(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Second
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	switch dbType := GetString(DBTypeKey); dbType {
	case DBInMemory, DBBadger:
	default:
		return fmt.Errorf("unsupported db type %s", dbType)
	}

	if GetInt(NumWorkersKey) <= 0 {
		return fmt.Errorf("%s must be greater than 0", NumWorkersKey)
	}
	if GetInt(TimerIntervalKey) <= 0 {
		return fmt.Errorf("%s must be greater than 0", TimerIntervalKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	if GetBool(EnableProfilerKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}

	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
