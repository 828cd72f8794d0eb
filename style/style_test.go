package style

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	bridgeerrors "github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/source"
)

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnStyleEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

type releaseRecorder struct {
	released int
}

func (r *releaseRecorder) Release() { r.released++ }

func mustSource(t *testing.T, id string) *source.Source {
	t.Helper()
	src, err := source.New(id, source.KindGeoJSON)
	if err != nil {
		t.Fatalf("source.New(%q): %v", id, err)
	}
	return src
}

func TestAdoptLookup(t *testing.T) {
	obs := &testObserver{}
	st := New(WithName("streets"), WithObserver(obs))
	src := mustSource(t, "r1")

	if err := st.Adopt("r1", src); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if !src.Adopted() {
		t.Error("source not marked adopted")
	}

	got, ok := st.Lookup("r1")
	if !ok || got != src {
		t.Errorf("Lookup(r1) = %v, %v", got, ok)
	}
	if _, ok := st.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
	if st.Name() != "streets" {
		t.Errorf("Name = %q", st.Name())
	}
	if got := obs.types(); !reflect.DeepEqual(got, []EventType{EventAdopted}) {
		t.Errorf("events = %v", got)
	}
}

func TestAdopt_Errors(t *testing.T) {
	st := New()
	src := mustSource(t, "r1")
	if err := st.Adopt("r1", src); err != nil {
		t.Fatal(err)
	}

	t.Run("collision", func(t *testing.T) {
		err := st.Adopt("r1", mustSource(t, "r1"))
		if !errors.Is(err, bridgeerrors.ErrIdentifierCollision) {
			t.Errorf("err = %v, want identifier collision", err)
		}
	})

	t.Run("held elsewhere", func(t *testing.T) {
		other := New()
		err := other.Adopt("r1", src)
		if !errors.Is(err, bridgeerrors.ErrAlreadyAttached) {
			t.Errorf("err = %v, want already attached", err)
		}
	})

	t.Run("nil source", func(t *testing.T) {
		var e *bridgeerrors.Error
		if err := st.Adopt("x", nil); !errors.As(err, &e) || e.Kind != bridgeerrors.KindInvalidInput {
			t.Errorf("err = %v, want invalid input", err)
		}
	})

	t.Run("mismatched id", func(t *testing.T) {
		var e *bridgeerrors.Error
		err := st.Adopt("other", mustSource(t, "r2"))
		if !errors.As(err, &e) || e.Kind != bridgeerrors.KindInvalidInput {
			t.Errorf("err = %v, want invalid input", err)
		}
	})

	t.Run("dropped source", func(t *testing.T) {
		dead := mustSource(t, "dead")
		dead.Drop()
		if err := st.Adopt("dead", dead); !errors.Is(err, bridgeerrors.ErrReleased) {
			t.Errorf("err = %v, want released", err)
		}
	})
}

func TestEvict(t *testing.T) {
	obs := &testObserver{}
	st := New(WithObserver(obs))
	src := mustSource(t, "r1")
	_ = st.Adopt("r1", src)

	got, err := st.Evict("r1")
	if err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if got != src {
		t.Error("Evict returned a different source")
	}
	if src.Adopted() {
		t.Error("evicted source still marked adopted")
	}
	if src.Dropped() {
		t.Error("evicted source must stay alive")
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}

	if _, err := st.Evict("r1"); !errors.Is(err, bridgeerrors.ErrNotFound) {
		t.Errorf("second Evict err = %v, want not found", err)
	}
	if got := obs.types(); !reflect.DeepEqual(got, []EventType{EventAdopted, EventEvicted}) {
		t.Errorf("events = %v", got)
	}
}

func TestIDs_Order(t *testing.T) {
	st := New()
	for _, id := range []string{"c", "a", "b"} {
		if err := st.Adopt(id, mustSource(t, id)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.Evict("a"); err != nil {
		t.Fatal(err)
	}
	_ = st.Adopt("a", mustSource(t, "a"))

	want := []string{"c", "b", "a"}
	if got := st.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}

	ids := st.IDs()
	ids[0] = "mutated"
	if st.IDs()[0] != "c" {
		t.Error("IDs must return a copy")
	}
}

func TestDestroy(t *testing.T) {
	obs := &testObserver{}
	st := New(WithObserver(obs))
	src := mustSource(t, "r1")
	rec := &releaseRecorder{}
	_ = st.Adopt("r1", src)
	src.SetPeer(rec)

	if err := st.Destroy("r1"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !src.Dropped() {
		t.Error("source not dropped")
	}
	if rec.released != 1 {
		t.Errorf("peer released %d times, want 1", rec.released)
	}
	if _, ok := st.Lookup("r1"); ok {
		t.Error("destroyed source still present")
	}
	if err := st.Destroy("r1"); !errors.Is(err, bridgeerrors.ErrNotFound) {
		t.Errorf("second Destroy err = %v, want not found", err)
	}
	if got := obs.types(); !reflect.DeepEqual(got, []EventType{EventAdopted, EventDestroyed}) {
		t.Errorf("events = %v", got)
	}
}

func TestClose(t *testing.T) {
	obs := &testObserver{}
	st := New(WithObserver(obs))
	srcs := []*source.Source{mustSource(t, "a"), mustSource(t, "b")}
	for _, s := range srcs {
		_ = st.Adopt(s.ID(), s)
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	for _, s := range srcs {
		if !s.Dropped() {
			t.Errorf("source %q not dropped", s.ID())
		}
	}

	obs.mu.Lock()
	var destroyed []string
	for _, e := range obs.events {
		if e.Type == EventDestroyed {
			destroyed = append(destroyed, e.ID)
		}
	}
	obs.mu.Unlock()
	if !reflect.DeepEqual(destroyed, []string{"a", "b"}) {
		t.Errorf("destroy order = %v, want [a b]", destroyed)
	}

	if err := st.Adopt("c", mustSource(t, "c")); !errors.Is(err, bridgeerrors.ErrClosed) {
		t.Errorf("Adopt after Close err = %v, want closed", err)
	}
	if _, err := st.Evict("a"); !errors.Is(err, bridgeerrors.ErrClosed) {
		t.Errorf("Evict after Close err = %v, want closed", err)
	}
	if err := st.Destroy("a"); !errors.Is(err, bridgeerrors.ErrClosed) {
		t.Errorf("Destroy after Close err = %v, want closed", err)
	}
	if st.Len() != 0 {
		t.Errorf("Len after Close = %d", st.Len())
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	st := New()
	obs := &testObserver{}
	st.Subscribe(obs)
	_ = st.Adopt("a", mustSource(t, "a"))
	st.Unsubscribe(obs)
	_ = st.Adopt("b", mustSource(t, "b"))

	if got := obs.types(); len(got) != 1 {
		t.Errorf("observer saw %d events, want 1", len(got))
	}
}

func TestObserverFunc(t *testing.T) {
	var seen []string
	st := New(WithObserver(ObserverFunc(func(e Event) {
		seen = append(seen, e.Type.String()+":"+e.ID)
	})))
	_ = st.Adopt("a", mustSource(t, "a"))
	_, _ = st.Evict("a")

	want := []string{"adopted:a", "evicted:a"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestEventType_String(t *testing.T) {
	if EventType(99).String() != "unknown" {
		t.Error("unknown event type should stringify as unknown")
	}
}

func TestConcurrentAdoptEvict(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		id := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, _ := source.New(id, source.KindVector)
			if err := st.Adopt(id, src); err != nil {
				t.Errorf("Adopt(%s): %v", id, err)
				return
			}
			if _, err := st.Evict(id); err != nil {
				t.Errorf("Evict(%s): %v", id, err)
			}
		}()
	}
	wg.Wait()
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}
