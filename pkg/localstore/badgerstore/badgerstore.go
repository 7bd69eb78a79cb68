// Package badgerstore is the default durable localstore backend. Pages and the
// settings record are kept as CBOR values in an embedded Badger database:
//
//	page/<id>   -> models.Page
//	settings    -> models.Settings
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/rs/zerolog"
)

var (
	pagePrefix  = []byte("page/")
	settingsKey = []byte("settings")
)

// Config configures the Badger database.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	InMemory bool

	SyncWrites bool

	// Logger receives Badger's internal messages. A nil logger silences them.
	Logger *zerolog.Logger

	// GCInterval is how often the value log is garbage collected. Zero disables it.
	GCInterval time.Duration

	GCDiscardRatio float64
}

// DefaultConfig returns a durable configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration that never touches disk.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

// Backend implements localstore.Backend with Badger transactions.
type Backend struct {
	db     *badger.DB
	enc    cbor.EncMode
	stopGC chan struct{}
	doneGC chan struct{}
}

var _ localstore.Backend = (*Backend)(nil)

// Open opens (creating if needed) the Badger database described by cfg.
func Open(cfg Config) (*Backend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger.With().Str("component", "badger").Logger()})
	} else {
		opts = opts.WithLogger(nil)
	}

	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	b := &Backend{db: db, enc: enc}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.startGC(cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}
	return b, nil
}

// OpenStore opens a Badger backend and wraps it in a PageStore.
func OpenStore(cfg Config, opts ...localstore.Option) (*localstore.PageStore, error) {
	backend, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return localstore.New(backend, opts...), nil
}

func (b *Backend) startGC(interval time.Duration, ratio float64, logger *zerolog.Logger) {
	b.stopGC = make(chan struct{})
	b.doneGC = make(chan struct{})
	go func() {
		defer close(b.doneGC)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopGC:
				return
			case <-ticker.C:
				err := b.db.RunValueLogGC(ratio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
					logger.Warn().Err(err).Msg("badger value log GC failed")
				}
			}
		}
	}()
}

// maxCommitAttempts bounds how often Update reruns fn after a commit lost to a
// concurrent transaction.
const maxCommitAttempts = 10

// Update runs fn in a read-write transaction. Badger transactions are
// optimistic, so fn is rerun on a fresh transaction when the commit conflicts
// and must not keep side effects outside the transaction.
func (b *Backend) Update(ctx context.Context, fn func(localstore.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = b.update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (b *Backend) update(fn func(localstore.Tx) error) error {
	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&tx{txn: txn, enc: b.enc}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (b *Backend) View(ctx context.Context, fn func(localstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := b.db.NewTransaction(false)
	defer txn.Discard()
	return fn(&tx{txn: txn, enc: b.enc})
}

func (b *Backend) Close() error {
	if b.stopGC != nil {
		close(b.stopGC)
		<-b.doneGC
	}
	return b.db.Close()
}

func pageKey(id models.PageID) []byte {
	return append(append([]byte{}, pagePrefix...), string(id)...)
}

type tx struct {
	txn *badger.Txn
	enc cbor.EncMode
}

func (t *tx) Page(id models.PageID) (*models.Page, error) {
	item, err := t.txn.Get(pageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, localstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePage(item)
}

func decodePage(item *badger.Item) (*models.Page, error) {
	var page models.Page
	err := item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &page)
	})
	if err != nil {
		return nil, fmt.Errorf("decode page %s: %w", item.Key(), err)
	}
	if page.Children == nil {
		page.Children = []models.PageID{}
	}
	return &page, nil
}

func (t *tx) PutPage(page *models.Page) error {
	val, err := t.enc.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", page.ID, err)
	}
	return t.txn.Set(pageKey(page.ID), val)
}

func (t *tx) DeletePage(id models.PageID) error {
	return t.txn.Delete(pageKey(id))
}

func (t *tx) Pages() ([]*models.Page, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = pagePrefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var pages []*models.Page
	for it.Seek(pagePrefix); it.ValidForPrefix(pagePrefix); it.Next() {
		page, err := decodePage(it.Item())
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (t *tx) PagesWithParent(parentID *models.PageID) ([]*models.Page, error) {
	return localstore.FilterByParent(t, parentID)
}

func (t *tx) Settings() (*models.Settings, error) {
	item, err := t.txn.Get(settingsKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var settings models.Settings
	if err := item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &settings)
	}); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if settings.CustomModels == nil {
		settings.CustomModels = []string{}
	}
	return &settings, nil
}

func (t *tx) PutSettings(settings models.Settings) error {
	val, err := t.enc.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return t.txn.Set(settingsKey, val)
}

func (t *tx) Clear() error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := t.txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
