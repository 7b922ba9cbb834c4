// Package ledger is the product ledger and ownership-transition engine.
//
// A product batch is created by its farmer, bought by a distributor, marked
// up and listed, bought by a retailer, marked up and listed again, and finally
// bought by a consumer. Every step is a transition validated by Engine against
// the current (state, owner) pair and committed to a Store together with its
// audit log entries. Query serves reads.
package ledger

import "go.uber.org/zap"

// Ledger bundles an in-memory store, account book and notifier behind one
// engine and query facade.
type Ledger struct {
	*Engine
	*Query

	Store    *MemoryStore
	Accounts *Accounts
	Events   *Notifier
}

// Config configures an in-memory Ledger
type Config struct {
	MarkupBps int64
	QueueSize int
	Logger    *zap.Logger
	Options   []Option
}

// NewInMemory creates a ledger whose state lives in process memory
func NewInMemory(cfg Config) *Ledger {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MarkupBps == 0 {
		cfg.MarkupBps = DefaultMarkupBps
	}

	store := NewMemoryStore()
	accounts := NewAccounts()
	events := NewNotifier(cfg.QueueSize, logger.Named("events"))

	opts := append([]Option{WithMarkup(cfg.MarkupBps), WithLogger(logger)}, cfg.Options...)
	return &Ledger{
		Engine:   NewEngine(store, accounts, events, opts...),
		Query:    NewQuery(store),
		Store:    store,
		Accounts: accounts,
		Events:   events,
	}
}

// Close drains pending notifications
func (l *Ledger) Close() {
	l.Events.Close()
}
