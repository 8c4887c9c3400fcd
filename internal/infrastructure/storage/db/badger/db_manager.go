package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
	"github.com/xbridge-network/xbridge-daemon/internal/core/domain"
	"github.com/xbridge-network/xbridge-daemon/internal/core/ports"
)

// RepoManager holds the badgerhold store backing the order registry. An
// empty baseDbDir opens an ephemeral in-memory store, used by tests.
type RepoManager struct {
	store *badgerhold.Store

	orderRepository domain.OrderRepository
}

func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	dbDir := ""
	if baseDbDir != "" {
		dbDir = baseDbDir + "/orders"
	}
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening order db: %w", err)
	}

	return &RepoManager{
		store:           store,
		orderRepository: NewOrderRepositoryImpl(store),
	}, nil
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) Close() {
	d.store.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	isInMemory := dbDir == ""

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	opts.InMemory = isInMemory

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
