package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// notifyChannel is the pg_notify channel the documents trigger writes to.
// The payload is the collection name that changed.
const notifyChannel = "documents"

// Postgres stores every collection in a single jsonb-backed documents table
// and turns the table's notify trigger into live collection subscriptions.
type Postgres struct {
	db       *sqlx.DB
	log      logrus.FieldLogger
	notif    *notifier
	listener *pq.Listener
	stop     chan struct{}
}

func NewPostgres(db *sqlx.DB, dsn string, log logrus.FieldLogger) (*Postgres, error) {
	p := &Postgres{
		db:    db,
		log:   log,
		notif: newNotifier(),
		stop:  make(chan struct{}),
	}

	p.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithField("event", ev).Errorf("documents listener: %v", err)
		}
	})

	if err := p.listener.Listen(notifyChannel); err != nil {
		p.listener.Close()
		return nil, fmt.Errorf("listening on %q: %w", notifyChannel, err)
	}

	go p.dispatch()
	return p, nil
}

// Close stops the notification pump. Open subscriptions stop receiving
// changes; their cancel funcs remain safe to call.
func (p *Postgres) Close() error {
	close(p.stop)
	return p.listener.Close()
}

func (p *Postgres) Collection(name string) Collection {
	return &pgCollection{name: name, p: p}
}

// dispatch pumps trigger notifications into the fan-out. A reconnect drops
// the notification stream on the floor for its duration, so after every
// silence we ping and republish watched collections to resync subscribers.
func (p *Postgres) dispatch() {
	for {
		select {
		case <-p.stop:
			return

		case n := <-p.listener.Notify:
			if n == nil {
				// nil marks a connection re-establishment
				p.republishAll()
				continue
			}
			p.republish(n.Extra)

		case <-time.After(90 * time.Second):
			if err := p.listener.Ping(); err != nil {
				p.log.Errorf("pinging documents listener: %v", err)
			}
		}
	}
}

func (p *Postgres) republish(collection string) {
	if !p.notif.active(collection) {
		return
	}

	docs, err := p.snapshot(context.Background(), collection)
	if err != nil {
		p.log.Errorf("loading snapshot of %q: %v", collection, err)
		p.notif.fail(collection, err)
		return
	}
	p.notif.publish(collection, docs)
}

func (p *Postgres) republishAll() {
	var collections []string
	if err := p.db.Select(&collections, `SELECT DISTINCT collection FROM documents`); err != nil {
		p.log.Errorf("listing collections: %v", err)
		return
	}
	for _, c := range collections {
		p.republish(c)
	}
}

func (p *Postgres) snapshot(ctx context.Context, collection string) ([]Document, error) {
	var rows []struct {
		ID   string         `db:"document_id"`
		Data types.JSONText `db:"data"`
	}

	const q = `SELECT document_id, data FROM documents
	           WHERE collection = $1 ORDER BY created_at, document_id`
	if err := p.db.SelectContext(ctx, &rows, q, collection); err != nil {
		return nil, fmt.Errorf("selecting documents of %q: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		var fields map[string]any
		if err := json.Unmarshal(r.Data, &fields); err != nil {
			return nil, fmt.Errorf("decoding document[%s]: %w", r.ID, err)
		}
		docs = append(docs, Document{ID: r.ID, Fields: fields})
	}
	return docs, nil
}

type pgCollection struct {
	name string
	p    *Postgres
}

func (c *pgCollection) Add(ctx context.Context, fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding document fields: %w", err)
	}

	id := uuid.NewString()
	const q = `INSERT INTO documents (collection, document_id, data) VALUES ($1, $2, $3)`
	if _, err := c.p.db.ExecContext(ctx, q, c.name, id, data); err != nil {
		return "", fmt.Errorf("inserting into %q: %w", c.name, err)
	}
	return id, nil
}

func (c *pgCollection) Get(ctx context.Context, id string) (map[string]any, error) {
	var data types.JSONText
	const q = `SELECT data FROM documents WHERE collection = $1 AND document_id = $2`
	if err := c.p.db.GetContext(ctx, &data, q, c.name, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching document[%s] of %q: %w", id, c.name, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding document[%s]: %w", id, err)
	}
	return fields, nil
}

func (c *pgCollection) Update(ctx context.Context, id string, partial map[string]any) error {
	data, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encoding partial fields: %w", err)
	}

	const q = `UPDATE documents SET data = data || $3, updated_at = now()
	           WHERE collection = $1 AND document_id = $2`
	res, err := c.p.db.ExecContext(ctx, q, c.name, id, data)
	if err != nil {
		return fmt.Errorf("updating document[%s] of %q: %w", id, c.name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND document_id = $2`
	res, err := c.p.db.ExecContext(ctx, q, c.name, id)
	if err != nil {
		return fmt.Errorf("deleting document[%s] of %q: %w", id, c.name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *pgCollection) Query(ctx context.Context, field string, value any) ([]Document, error) {
	var rows []struct {
		ID   string         `db:"document_id"`
		Data types.JSONText `db:"data"`
	}

	const q = `SELECT document_id, data FROM documents
	           WHERE collection = $1 AND data->>$2 = $3
	           ORDER BY created_at, document_id`
	if err := c.p.db.SelectContext(ctx, &rows, q, c.name, field, fmt.Sprintf("%v", value)); err != nil {
		return nil, fmt.Errorf("querying %q by %s: %w", c.name, field, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		var fields map[string]any
		if err := json.Unmarshal(r.Data, &fields); err != nil {
			return nil, fmt.Errorf("decoding document[%s]: %w", r.ID, err)
		}
		docs = append(docs, Document{ID: r.ID, Fields: fields})
	}
	return docs, nil
}

func (c *pgCollection) Subscribe(onChange func([]Document), onError func(error)) (CancelFunc, error) {
	initial, err := c.p.snapshot(context.Background(), c.name)
	if err != nil {
		return nil, fmt.Errorf("loading initial snapshot of %q: %w", c.name, err)
	}

	return c.p.notif.subscribe(c.name, initial, onChange, onError), nil
}
