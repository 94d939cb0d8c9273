package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/docstore"
	"github.com/Zachkp/portfolio/internal/kv"
	"github.com/Zachkp/portfolio/internal/logging"
)

// closers are released in reverse order on shutdown.
type closers []io.Closer

func (cs closers) Close(logger *logging.Logger) {
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil {
			logger.Warn("Error during shutdown: %v", err)
		}
	}
}

// openStateStore picks where rate-limit counters live.
func openStateStore(ctx context.Context, cfg *config.Config, db *sql.DB) (kv.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return kv.NewMemory(), nil, nil
	case config.BackendSQLite:
		return kv.NewSQLite(db), nil, nil
	case config.BackendRedis:
		store, err := kv.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// openSink picks where contact messages are written. When SMTP is
// configured every stored message is also mailed.
func openSink(ctx context.Context, cfg *config.Config, db *sql.DB, clk clock.Clock, logger *logging.Logger) (contact.Sink, io.Closer, error) {
	var (
		sink   contact.Sink
		closer io.Closer
	)

	switch cfg.SinkBackend {
	case config.BackendMemory:
		sink = docstore.NewMemory(clk)
	case config.BackendSQLite:
		sink = docstore.NewSQLite(db)
	case config.BackendFirestore:
		fs, err := docstore.OpenFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			return nil, nil, err
		}
		sink, closer = fs, fs
	default:
		return nil, nil, fmt.Errorf("unknown sink backend %q", cfg.SinkBackend)
	}

	if cfg.MailEnabled() {
		mailer := docstore.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.ToEmail)
		sink = docstore.NewNotifying(sink, mailer, logger)
		logger.Info("Contact notifications will be mailed to %s", mailer.To)
	}
	return sink, closer, nil
}
