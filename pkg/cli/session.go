package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notedcloud/noted/pkg/localstore"
	"github.com/notedcloud/noted/pkg/localstore/badgerstore"
	"github.com/notedcloud/noted/pkg/localstore/memstore"
	"github.com/notedcloud/noted/pkg/localstore/sqlitestore"
	"github.com/notedcloud/noted/pkg/logging"
	"github.com/notedcloud/noted/pkg/publish"
	"github.com/notedcloud/noted/pkg/state"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// session is everything one command invocation works with.
type session struct {
	opts    *RootOptions
	out     *OutputFormatter
	logger  zerolog.Logger
	log     *logging.Log
	store   localstore.Store
	client  *publish.Client
	manager *state.Manager
	cancel  func()
}

// openSession opens the local store, builds the state manager on it and
// loads the state. A store that cannot be opened is replaced by an in-memory
// one, so the command still runs but nothing it changes is kept.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	log, err := logging.New().FromWriter(cmd.ErrOrStderr()).Level(opts.LogLevel).Pretty(true).Make()
	if err != nil {
		return nil, NewExitError(ExitCommandError, err.Error())
	}

	s := &session{
		opts:   opts,
		log:    log,
		logger: log.Logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}

	store, err := openStore(opts, s.logger)
	if err != nil {
		s.logger.Error().Err(err).Str("backend", opts.Backend).Msg("failed to open local store, changes will not be saved")
		store = memstore.NewStore(localstore.WithLogger(s.logger))
	}
	s.store = store

	var syncer state.Syncer
	if opts.Remote != "" {
		s.client = publish.NewClient(opts.Remote, publish.WithAuthToken(opts.Token), publish.WithLogger(s.logger))
		syncer = s.client
	}
	s.manager = state.New(store, syncer, state.WithLogger(s.logger))
	s.cancel = s.manager.Subscribe(func(ev state.Event) {
		if ev.Kind == state.EventPublishState {
			s.out.VerboseLog("%s %s %s", ev.Kind, ev.PageID, ev.State)
			return
		}
		s.out.VerboseLog("%s %s", ev.Kind, ev.PageID)
	})
	s.manager.Initialize(cmd.Context())
	return s, nil
}

func openStore(opts *RootOptions, logger zerolog.Logger) (localstore.Store, error) {
	storeOpts := []localstore.Option{localstore.WithLogger(logger)}
	switch opts.Backend {
	case BackendBadger:
		cfg := badgerstore.DefaultConfig(filepath.Join(opts.DataDir, "badger"))
		cfg.Logger = &logger
		// Each command is short lived, value log GC would never get to run.
		cfg.GCInterval = 0
		return badgerstore.OpenStore(cfg, storeOpts...)
	case BackendSQLite:
		if err := os.MkdirAll(opts.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", opts.DataDir, err)
		}
		return sqlitestore.OpenStore(filepath.Join(opts.DataDir, "noted.db"), storeOpts...)
	case BackendMemory:
		return memstore.NewStore(storeOpts...), nil
	}
	return nil, fmt.Errorf("unknown backend %q", opts.Backend)
}

func (s *session) Close() error {
	s.cancel()
	err := s.store.Close()
	if cerr := s.log.Close(); err == nil {
		err = cerr
	}
	return err
}

// withSession runs fn with an open session and closes it afterwards.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(*session) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
