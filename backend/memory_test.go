package backend

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	coll := NewMemory().Collection("cursos")

	id, err := coll.Add(ctx, map[string]any{"nombre": "vue", "precio": 50000})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	fields, err := coll.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fields["nombre"] != "vue" {
		t.Errorf("fields = %v", fields)
	}

	if err := coll.Update(ctx, id, map[string]any{"precio": 60000}); err != nil {
		t.Fatalf("update: %v", err)
	}
	fields, _ = coll.Get(ctx, id)
	if fields["precio"] != 60000 || fields["nombre"] != "vue" {
		t.Errorf("partial update clobbered fields: %v", fields)
	}

	if err := coll.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := coll.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v, want ErrNotFound", err)
	}
	if err := coll.Update(ctx, id, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("update after delete: %v, want ErrNotFound", err)
	}
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	coll := NewMemory().Collection("inscripciones")

	for _, cursoID := range []string{"c1", "c2", "c1"} {
		if _, err := coll.Add(ctx, map[string]any{"cursoId": cursoID}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := coll.Query(ctx, "cursoId", "c1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("query matched %d documents, want 2", len(docs))
	}

	docs, err = coll.Query(ctx, "cursoId", "c9")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("query matched %d documents, want 0", len(docs))
	}
}

func TestMemorySubscribe(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	coll := mem.Collection("cursos")

	if _, err := coll.Add(ctx, map[string]any{"nombre": "vue"}); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var last []Document
	deliveries := 0

	cancel, err := coll.Subscribe(func(docs []Document) {
		mu.Lock()
		last = docs
		deliveries++
		mu.Unlock()
	}, func(error) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// initial delivery carries the current snapshot
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 1 && len(last) == 1
	})

	if _, err := coll.Add(ctx, map[string]any{"nombre": "go"}); err != nil {
		t.Fatal(err)
	}

	// every delivery is the full snapshot, not a diff
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 2
	})

	cancel()
	cancel() // idempotent

	mu.Lock()
	seen := deliveries
	mu.Unlock()

	if _, err := coll.Add(ctx, map[string]any{"nombre": "rust"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	after := deliveries
	mu.Unlock()
	if after != seen {
		t.Errorf("cancelled subscription still received %d deliveries", after-seen)
	}
}

func TestMemoryEmitError(t *testing.T) {
	mem := NewMemory()
	coll := mem.Collection("cursos")

	errs := make(chan error, 1)
	cancel, err := coll.Subscribe(func([]Document) {}, func(err error) { errs <- err })
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	mem.EmitError("cursos", io.ErrUnexpectedEOF)

	select {
	case err := <-errs:
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError never fired")
	}
}

func TestDocumentDecode(t *testing.T) {
	d := Document{
		ID:     "c1",
		Fields: map[string]any{"nombre": "vue", "precio": 50000, "estado": true},
	}

	var got struct {
		ID     string `json:"id"`
		Name   string `json:"nombre"`
		Price  int    `json:"precio"`
		Active bool   `json:"estado"`
	}
	if err := d.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != "c1" || got.Name != "vue" || got.Price != 50000 || !got.Active {
		t.Errorf("decoded = %+v", got)
	}
}

func TestEncodeStripsID(t *testing.T) {
	v := struct {
		ID   string `json:"id"`
		Name string `json:"nombre"`
	}{ID: "should-vanish", Name: "vue"}

	m, err := Encode(v)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"nombre": "vue"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("encoded mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodePartialDropsNil(t *testing.T) {
	name := "vue"
	v := struct {
		Name  *string `json:"nombre"`
		Price *int    `json:"precio"`
	}{Name: &name}

	m, err := EncodePartial(v)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"nombre": "vue"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("partial mismatch (-want +got):\n%s", diff)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
