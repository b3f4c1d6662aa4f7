package store

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/avelazco/cursoteca/auth"
	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/enrollment"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) Push(_ context.Context, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *routeRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

type env struct {
	store *Store
	mem   *backend.Memory
	nav   *routeRecorder
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := backend.NewMemory()
	nav := &routeRecorder{}
	s := New(mem, auth.NewService(mem), nav, log)
	t.Cleanup(s.Close)

	return &env{store: s, mem: mem, nav: nav}
}

func (e *env) seedCourse(t *testing.T, name string, price int, active bool) string {
	t.Helper()

	id, err := e.mem.Collection("cursos").Add(context.Background(), map[string]any{
		"nombre":    name,
		"precio":    price,
		"img":       "https://img.test/" + name + ".png",
		"codigo":    "C-" + name,
		"estado":    active,
		"inscritos": 0,
	})
	if err != nil {
		t.Fatalf("seeding course %q: %v", name, err)
	}
	return id
}

func (e *env) seats(t *testing.T, courseID string) int {
	t.Helper()

	fields, err := e.mem.Collection("cursos").Get(context.Background(), courseID)
	if err != nil {
		t.Fatalf("fetching course[%s]: %v", courseID, err)
	}
	return asInt(fields["inscritos"])
}

func (e *env) login(t *testing.T) {
	t.Helper()

	if err := e.store.Register(context.Background(), "alumno@test.com", "secret123"); err != nil {
		t.Fatalf("registering test user: %v", err)
	}
}

// watch opens the course subscription and waits for the mirror to hold n
// courses.
func (e *env) watch(t *testing.T, n int) {
	t.Helper()

	if err := e.store.WatchCourses(context.Background()); err != nil {
		t.Fatalf("watching courses: %v", err)
	}
	waitFor(t, func() bool { return e.store.Snapshot().CourseCount() == n })
}

func waitFor(t *testing.T, cond func() bool) {
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

func TestWatchCoursesMirrorsCollection(t *testing.T) {
	e := newEnv(t)
	id := e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	st := e.store.Snapshot()
	c, ok := st.CourseByID(id)
	if !ok {
		t.Fatalf("course[%s] missing from mirror", id)
	}
	if c.Name != "vue" || c.Price != 50000 || !c.Active {
		t.Errorf("mirrored course = %+v", c)
	}
	if st.LoadingCourses {
		t.Error("loading flag still set after first snapshot")
	}

	// a later write must be echoed wholesale
	e.seedCourse(t, "go", 30000, false)
	waitFor(t, func() bool { return e.store.Snapshot().CourseCount() == 2 })
}

func TestWatchCoursesIdempotent(t *testing.T) {
	e := newEnv(t)
	e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	gen := func() int {
		e.store.mu.Lock()
		defer e.store.mu.Unlock()
		return e.store.courseGen
	}

	before := gen()
	if err := e.store.WatchCourses(context.Background()); err != nil {
		t.Fatalf("second watch: %v", err)
	}
	if got := gen(); got != before {
		t.Errorf("second watch opened a new subscription: generation %d -> %d", before, got)
	}
}

func TestLateDeliveryDropped(t *testing.T) {
	e := newEnv(t)
	e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	// a notification carrying a stale generation must not touch the mirror
	stale := []backend.Document{{ID: "ghost", Fields: map[string]any{"nombre": "ghost"}}}
	e.store.applyCourses(e.store.courseGen-1, stale)

	if _, ok := e.store.Snapshot().CourseByID("ghost"); ok {
		t.Error("stale notification was applied")
	}
}

func TestSubscriptionErrorKeepsMirror(t *testing.T) {
	e := newEnv(t)
	e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	e.mem.EmitError("cursos", io.ErrUnexpectedEOF)

	waitFor(t, func() bool { return !e.store.Snapshot().LoadingCourses })
	if got := e.store.Snapshot().CourseCount(); got != 1 {
		t.Errorf("mirror dropped on subscription error: %d courses", got)
	}
}

func TestAddToCartDedupe(t *testing.T) {
	e := newEnv(t)
	id := e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	ctx := context.Background()
	if err := e.store.AddToCart(ctx, id); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := e.store.AddToCart(ctx, id); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if got := e.store.Snapshot().CartCount(); got != 1 {
		t.Errorf("cart holds %d items, want 1", got)
	}
	// the duplicate add must not reserve a second seat
	if got := e.seats(t, id); got != 1 {
		t.Errorf("inscritos = %d, want 1", got)
	}
}

func TestCartTotals(t *testing.T) {
	e := newEnv(t)
	c1 := e.seedCourse(t, "vue", 50000, true)
	c2 := e.seedCourse(t, "go", 30000, true)
	e.watch(t, 2)

	ctx := context.Background()
	if err := e.store.AddToCart(ctx, c1); err != nil {
		t.Fatal(err)
	}

	st := e.store.Snapshot()
	if got := st.CartTotal(); got != 50000 {
		t.Errorf("total = %d, want 50000", got)
	}

	if err := e.store.AddToCart(ctx, c2); err != nil {
		t.Fatal(err)
	}

	st = e.store.Snapshot()
	if got := st.CartTotal(); got != 80000 {
		t.Errorf("total = %d, want 80000", got)
	}
	if got := st.CartCount(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestAddToCartUnknownCourse(t *testing.T) {
	e := newEnv(t)
	e.watch(t, 0)

	err := e.store.AddToCart(context.Background(), "nope")
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestRemoveFromCartClampsAtZero(t *testing.T) {
	e := newEnv(t)
	id := e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	ctx := context.Background()
	if err := e.store.AddToCart(ctx, id); err != nil {
		t.Fatal(err)
	}

	// someone else zeroed the counter behind our back
	if err := e.mem.Collection("cursos").Update(ctx, id, map[string]any{"inscritos": 0}); err != nil {
		t.Fatal(err)
	}

	if err := e.store.RemoveFromCart(ctx, id); err != nil {
		t.Fatal(err)
	}

	if got := e.seats(t, id); got != 0 {
		t.Errorf("inscritos = %d, want 0 (clamped)", got)
	}
	if got := e.store.Snapshot().CartCount(); got != 0 {
		t.Errorf("cart holds %d items after remove", got)
	}
}

func TestClearCartRestoresEverySeat(t *testing.T) {
	e := newEnv(t)
	c1 := e.seedCourse(t, "vue", 50000, true)
	c2 := e.seedCourse(t, "go", 30000, true)
	e.watch(t, 2)

	ctx := context.Background()
	for _, id := range []string{c1, c2} {
		if err := e.store.AddToCart(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	if err := e.store.ClearCart(ctx); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{c1, c2} {
		if got := e.seats(t, id); got != 0 {
			t.Errorf("course[%s] inscritos = %d, want 0", id, got)
		}
	}
	if got := e.store.Snapshot().CartCount(); got != 0 {
		t.Errorf("cart holds %d items after clear", got)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	_, err := e.store.Checkout(context.Background(), enrollment.Cash)
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}

	// no backend writes may have happened
	docs, err := e.mem.Collection("inscripciones").Query(context.Background(), "usuarioEmail", "alumno@test.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("%d enrollments written on a rejected checkout", len(docs))
	}
}

func TestCheckoutNoSession(t *testing.T) {
	e := newEnv(t)
	id := e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	if err := e.store.AddToCart(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	_, err := e.store.Checkout(context.Background(), enrollment.Cash)
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCheckoutInvalidMethod(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	id := e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	if err := e.store.AddToCart(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	_, err := e.store.Checkout(context.Background(), enrollment.PaymentMethod("bitcoin"))
	if !IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCheckoutCreatesEnrollments(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	c1 := e.seedCourse(t, "vue", 50000, true)
	c2 := e.seedCourse(t, "go", 30000, true)
	e.watch(t, 2)

	ctx := context.Background()
	for _, id := range []string{c1, c2} {
		if err := e.store.AddToCart(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := e.store.Checkout(ctx, enrollment.Transfer)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("checkout wrote %d enrollments, want 2", len(ids))
	}

	enrolls, err := e.store.EnrollmentsForCourse(ctx, c1)
	if err != nil {
		t.Fatal(err)
	}
	if len(enrolls) != 1 {
		t.Fatalf("course[%s] has %d enrollments, want 1", c1, len(enrolls))
	}

	got := enrolls[0]
	if got.ID == "" || got.UserID == "" {
		t.Errorf("enrollment missing backend-assigned ids: %+v", got)
	}
	got.ID, got.EnrolledAt = "", time.Time{}
	want := enrollment.Enrollment{
		UserEmail:     "alumno@test.com",
		UserID:        got.UserID,
		CourseID:      c1,
		CourseName:    "vue",
		CoursePrice:   50000,
		Status:        enrollment.Confirmed,
		PaymentMethod: enrollment.Transfer,
		Total:         50000,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("enrollment mismatch (-want +got):\n%s", diff)
	}

	// cart emptied, seats still consumed
	if got := e.store.Snapshot().CartCount(); got != 0 {
		t.Errorf("cart holds %d items after checkout", got)
	}
	for _, id := range []string{c1, c2} {
		if got := e.seats(t, id); got != 1 {
			t.Errorf("course[%s] inscritos = %d, want 1 (no restore on purchase)", id, got)
		}
	}
}

func TestLogoutTearsDownCourseWatch(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	e.seedCourse(t, "vue", 50000, true)
	e.watch(t, 1)

	if err := e.store.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	st := e.store.Snapshot()
	if st.Session != nil {
		t.Error("session survives logout")
	}
	if st.CourseCount() != 0 {
		t.Error("course mirror survives logout")
	}
	if e.nav.last() != RouteLogin {
		t.Errorf("navigated to %q, want %q", e.nav.last(), RouteLogin)
	}

	e.store.mu.Lock()
	active := e.store.courseCancel != nil
	e.store.mu.Unlock()
	if active {
		t.Error("course subscription still active after logout")
	}

	// a fresh watch must succeed
	e.watch(t, 1)
}

func TestAuthActions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.store.Register(ctx, "alumno@test.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	st := e.store.Snapshot()
	if !st.IsAuthenticated() {
		t.Fatal("not authenticated after register")
	}
	if got := st.UserEmail(); got != "alumno@test.com" {
		t.Errorf("email = %q", got)
	}
	if e.nav.last() != RouteHome {
		t.Errorf("navigated to %q, want %q", e.nav.last(), RouteHome)
	}
	if st.LoadingUser {
		t.Error("loading flag still set")
	}

	if err := e.store.Login(ctx, "alumno@test.com", "wrong"); err == nil {
		t.Fatal("login with a bad password succeeded")
	}
	if e.store.Snapshot().LoadingUser {
		t.Error("loading flag leaked by the failed login")
	}

	if err := e.store.Login(ctx, "alumno@test.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestResolveSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// signed out: the guard resolves to no session
	sess, err := e.store.ResolveSession(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess != nil {
		t.Fatalf("resolved session %+v, want none", sess)
	}

	e.login(t)

	sess, err = e.store.ResolveSession(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess == nil || sess.Email != "alumno@test.com" {
		t.Fatalf("resolved session %+v", sess)
	}
}

func TestManager(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := backend.NewMemory()
	m := NewManager(mem, func() auth.Facade { return auth.NewService(mem) }, nil, log)
	defer m.Close()

	a := m.Get("tok-a")
	if m.Get("tok-a") != a {
		t.Error("same token produced a second store")
	}
	if m.Get("tok-b") == a {
		t.Error("different tokens share a store")
	}

	if err := a.WatchCourses(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Drop("tok-a")

	a.mu.Lock()
	active := a.courseCancel != nil
	a.mu.Unlock()
	if active {
		t.Error("dropped store keeps its subscription")
	}

	if m.Get("tok-a") == a {
		t.Error("dropped token resolves to the old store")
	}
}
