package di

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	"github.com/CjHare/ton-amm-dex/internal/config"
	"github.com/CjHare/ton-amm-dex/internal/core/deriver"
	"github.com/CjHare/ton-amm-dex/internal/sandbox"
	"github.com/CjHare/ton-amm-dex/internal/storage/journal"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv/leveldb"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv/memory"
	"github.com/CjHare/ton-amm-dex/internal/storage/kv/pebble"
	"github.com/CjHare/ton-amm-dex/internal/storage/statestore"
	"go.uber.org/zap"
)

// Provider registers the services a configuration describes.
type Provider struct {
	container *Container
	config    *config.Config
}

func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{container: container, config: cfg}
}

// RegisterAll registers the configuration, the logger and builders for the
// shared services.
func (p *Provider) RegisterAll(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	p.container.Register(ServiceConfig, p.config)
	p.container.Register(ServiceLogger, log)

	p.container.RegisterBuilder(ServiceDeriver, func(*Container) (any, error) {
		return deriver.New(p.config.Chain.Workchain, p.config.Router.PoolCacheSize)
	})
	if p.config.Journal.Enabled {
		p.container.RegisterBuilder(ServiceJournal, func(*Container) (any, error) {
			timeout := p.config.Journal.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return journal.Open(ctx, journal.Config{
				Driver:  p.config.Journal.Driver,
				DSN:     p.config.Journal.DSN,
				Timeout: timeout,
			})
		})
	}
}

// Config returns the configuration the provider was built with.
func (p *Provider) Config() *config.Config { return p.config }

// Logger returns the registered logger.
func (p *Provider) Logger() *zap.Logger {
	log, err := Resolve[*zap.Logger](p.container, ServiceLogger)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Journal returns the shared journal, or nil when journaling is disabled.
func (p *Provider) Journal() (*journal.Journal, error) {
	if !p.container.Has(ServiceJournal) {
		return nil, nil
	}
	return Resolve[*journal.Journal](p.container, ServiceJournal)
}

// OpenKV opens the configured key-value backend for run. Persistent
// backends keep each run in its own directory under the storage path.
func (p *Provider) OpenKV(run string) (kv.DB, error) {
	return OpenKV(p.config.Storage.Backend, filepath.Join(p.config.Storage.Path, run))
}

// OpenKV opens a key-value backend by name.
func OpenKV(backend, dir string) (kv.DB, error) {
	switch backend {
	case config.BackendMemory, "":
		return memory.New(), nil
	case config.BackendPebble:
		return pebble.Open(dir)
	case config.BackendLevelDB:
		return leveldb.Open(dir)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, backend)
	}
}

// Sandbox builds an independent sandbox for run, with its own account store
// and a journal view tagged with run. Journal rows the restored ledger does
// not account for are dropped, so a run that starts over re-records from its
// first lt. The returned close function releases the account store.
func (p *Provider) Sandbox(ctx context.Context, run string) (*sandbox.Sandbox, func() error, error) {
	d, err := Resolve[*deriver.Deriver](p.container, ServiceDeriver)
	if err != nil {
		return nil, nil, err
	}
	j, err := p.Journal()
	if err != nil {
		return nil, nil, err
	}
	db, err := p.OpenKV(run)
	if err != nil {
		return nil, nil, fmt.Errorf("open state for %s: %w", run, err)
	}

	ledgerOpts := []chain.Option{
		chain.WithStore(statestore.New(db)),
		chain.WithConfig(chain.Config{
			ComputeFee:     p.config.Chain.ComputeFee,
			StorageReserve: p.config.Chain.StorageReserve,
			MaxSteps:       p.config.Chain.MaxSteps,
		}),
	}
	if j != nil {
		ledgerOpts = append(ledgerOpts, chain.WithJournal(j.ForRun(run)))
	}
	opts := []sandbox.Option{
		sandbox.WithDeriver(d),
		sandbox.WithClock(chain.NewManualClockAt(p.config.Chain.StartTime)),
		sandbox.WithLogger(p.Logger().With(zap.String("run", run))),
		sandbox.WithRouterBalance(p.config.Router.Balance),
		sandbox.WithLedgerOptions(ledgerOpts...),
	}
	if p.config.Router.Admin != "" {
		admin, err := codec.ParseAddress(p.config.Router.Admin)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("router admin: %w", err), db.Close())
		}
		opts = append(opts, sandbox.WithAdmin(admin))
	}

	sb, err := sandbox.New(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	if j != nil {
		stale, err := j.ForRun(run).Truncate(ctx, sb.Ledger.LT())
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}
		if stale > 0 {
			p.Logger().Info("dropped stale journal rows", zap.String("run", run), zap.Int64("rows", stale))
		}
	}
	return sb, db.Close, nil
}
