package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is a map-backed Store with the same subscription semantics as the
// Postgres implementation. It backs the unit tests and doubles as a
// throwaway backend for local runs without a database.
type Memory struct {
	mu    sync.Mutex
	colls map[string]*memCollection
	notif *notifier
	seq   int
}

func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string]*memCollection),
		notif: newNotifier(),
	}
}

func (m *Memory) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.colls[name]
	if !ok {
		c = &memCollection{name: name, m: m, docs: make(map[string]memDoc)}
		m.colls[name] = c
	}
	return c
}

// EmitError pushes a stream error to every live subscriber of the
// collection, standing in for a backend-side subscription failure.
func (m *Memory) EmitError(collection string, err error) {
	m.notif.fail(collection, err)
}

type memDoc struct {
	fields map[string]any
	seq    int
}

type memCollection struct {
	name string
	m    *Memory
	docs map[string]memDoc
}

func (c *memCollection) Add(ctx context.Context, fields map[string]any) (string, error) {
	c.m.mu.Lock()
	id := uuid.NewString()
	c.m.seq++
	c.docs[id] = memDoc{fields: cloneFields(fields), seq: c.m.seq}
	snap := c.snapshotLocked()
	c.m.mu.Unlock()

	c.m.notif.publish(c.name, snap)
	return id, nil
}

func (c *memCollection) Get(ctx context.Context, id string) (map[string]any, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	d, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(d.fields), nil
}

func (c *memCollection) Update(ctx context.Context, id string, partial map[string]any) error {
	c.m.mu.Lock()
	d, ok := c.docs[id]
	if !ok {
		c.m.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range partial {
		d.fields[k] = v
	}
	c.docs[id] = d
	snap := c.snapshotLocked()
	c.m.mu.Unlock()

	c.m.notif.publish(c.name, snap)
	return nil
}

func (c *memCollection) Delete(ctx context.Context, id string) error {
	c.m.mu.Lock()
	if _, ok := c.docs[id]; !ok {
		c.m.mu.Unlock()
		return ErrNotFound
	}
	delete(c.docs, id)
	snap := c.snapshotLocked()
	c.m.mu.Unlock()

	c.m.notif.publish(c.name, snap)
	return nil
}

func (c *memCollection) Query(ctx context.Context, field string, value any) ([]Document, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	want := fmt.Sprintf("%v", value)
	var docs []Document
	for _, d := range c.snapshotLocked() {
		if got, ok := d.Fields[field]; ok && fmt.Sprintf("%v", got) == want {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (c *memCollection) Subscribe(onChange func([]Document), onError func(error)) (CancelFunc, error) {
	c.m.mu.Lock()
	initial := c.snapshotLocked()
	c.m.mu.Unlock()

	return c.m.notif.subscribe(c.name, initial, onChange, onError), nil
}

// snapshotLocked builds the full collection snapshot in insertion order.
func (c *memCollection) snapshotLocked() []Document {
	docs := make([]Document, 0, len(c.docs))
	for id, d := range c.docs {
		docs = append(docs, Document{ID: id, Fields: cloneFields(d.fields)})
	}
	sort.Slice(docs, func(i, j int) bool {
		return c.docs[docs[i].ID].seq < c.docs[docs[j].ID].seq
	})
	return docs
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
