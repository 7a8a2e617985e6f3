package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/obslog"
)

const (
	defaultQueueSize = 1024
	writeTimeout     = 5 * time.Second
)

const schema = `CREATE TABLE IF NOT EXISTS relay_events (
    id          UUID PRIMARY KEY,
    event       TEXT NOT NULL,
    room_code   TEXT NOT NULL,
    uid         TEXT NOT NULL DEFAULT '',
    detail      JSONB,
    occurred_at TIMESTAMPTZ NOT NULL
)`

const insertEvent = `INSERT INTO relay_events (id, event, room_code, uid, detail, occurred_at)
    VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`

// Postgres writes entries to the relay_events table from a background
// worker. Record enqueues and drops the entry when the queue is full.
type Postgres struct {
	db    *sql.DB
	queue chan Entry
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// OpenPostgres connects, ensures the table exists and starts the writer.
func OpenPostgres(ctx context.Context, databaseURL string, queueSize int) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(pctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return newPostgres(db, queueSize), nil
}

func newPostgres(db *sql.DB, queueSize int) *Postgres {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Postgres{db: db, queue: make(chan Entry, queueSize), stop: make(chan struct{})}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Postgres) Record(e Entry) {
	select {
	case <-p.stop:
		return
	default:
	}
	select {
	case p.queue <- e:
	default:
		obslog.L().Warn("journal_drop", zap.String("event", e.Event), zap.String("code", e.Code))
	}
}

func (p *Postgres) run() {
	defer p.wg.Done()
	for {
		select {
		case e := <-p.queue:
			p.write(e)
		case <-p.stop:
			for {
				select {
				case e := <-p.queue:
					p.write(e)
				default:
					return
				}
			}
		}
	}
}

func (p *Postgres) write(e Entry) {
	args, err := insertArgs(e)
	if err != nil {
		obslog.L().Warn("journal_encode_error", zap.String("event", e.Event), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := p.db.ExecContext(ctx, insertEvent, args...); err != nil {
		obslog.L().Warn("journal_write_error", zap.String("event", e.Event), zap.String("code", e.Code), zap.Error(err))
	}
}

func insertArgs(e Entry) ([]any, error) {
	var detail any
	if len(e.Detail) > 0 {
		raw, err := json.Marshal(e.Detail)
		if err != nil {
			return nil, err
		}
		detail = string(raw)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return []any{e.ID, e.Event, e.Code, e.UID, detail, at.UTC()}, nil
}

// Close drains queued entries and closes the database.
func (p *Postgres) Close() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
	return p.db.Close()
}
