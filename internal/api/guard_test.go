package api

import (
	"context"
	"testing"
)

func newTestGuard(t *testing.T, maxSessions int) *Guard {
	t.Helper()
	g, err := NewGuard(maxSessions)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGuard_NewerSubmissionCancelsOlder(t *testing.T) {
	g := newTestGuard(t, 0)

	ctx1, t1 := g.Begin(context.Background(), PageDaily, "tab")
	defer t1.Release()
	ctx2, t2 := g.Begin(context.Background(), PageDaily, "tab")
	defer t2.Release()

	if ctx1.Err() == nil {
		t.Error("first context should be cancelled by the second Begin")
	}
	if ctx2.Err() != nil {
		t.Errorf("second context err = %v", ctx2.Err())
	}
	if g.Current(t1) || !g.Current(t2) {
		t.Errorf("Current = %v, %v; want false, true", g.Current(t1), g.Current(t2))
	}

	if g.Commit(t1, &PageResult{Page: "old"}) {
		t.Error("stale ticket must not commit")
	}
	if _, ok := g.Last(PageDaily, "tab"); ok {
		t.Error("nothing should be published yet")
	}

	if !g.Commit(t2, &PageResult{Page: "new"}) {
		t.Fatal("current ticket should commit")
	}
	last, ok := g.Last(PageDaily, "tab")
	if !ok || last.Page != "new" || last.Generation != 2 {
		t.Errorf("Last = %+v, %v", last, ok)
	}
}

func TestGuard_PagesAndSessionsAreIndependent(t *testing.T) {
	g := newTestGuard(t, 0)

	ctxA, a := g.Begin(context.Background(), PageDaily, "a")
	defer a.Release()
	_, b := g.Begin(context.Background(), PageDaily, "b")
	defer b.Release()
	_, m := g.Begin(context.Background(), PageMonthly, "a")
	defer m.Release()

	if ctxA.Err() != nil {
		t.Error("other session or page must not cancel the request")
	}
	if !g.Current(a) || !g.Current(b) || !g.Current(m) {
		t.Error("all tickets should be current")
	}
	if a.Generation != 1 || b.Generation != 1 || m.Generation != 1 {
		t.Errorf("generations = %d %d %d", a.Generation, b.Generation, m.Generation)
	}
}

func TestGuard_ReleaseCancelsContext(t *testing.T) {
	g := newTestGuard(t, 0)
	ctx, tk := g.Begin(context.Background(), PageStats, "tab")
	tk.Release()
	if ctx.Err() == nil {
		t.Error("Release should cancel the context")
	}
	// A released ticket that is still the newest may still publish.
	if !g.Commit(tk, &PageResult{}) {
		t.Error("commit after release should succeed for the newest ticket")
	}
}

func TestGuard_EvictsLeastRecentSessions(t *testing.T) {
	g := newTestGuard(t, 2)

	for _, session := range []string{"a", "b", "c"} {
		_, tk := g.Begin(context.Background(), PageDaily, session)
		if !g.Commit(tk, &PageResult{Page: session}) {
			t.Fatalf("commit for session %q failed", session)
		}
		tk.Release()
	}

	if got := g.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if _, ok := g.Last(PageDaily, "a"); ok {
		t.Error("oldest session should have been evicted")
	}
	for _, session := range []string{"b", "c"} {
		if last, ok := g.Last(PageDaily, session); !ok || last.Page != session {
			t.Errorf("Last(%q) = %+v, %v", session, last, ok)
		}
	}
}

func TestGuard_EvictedInFlightSubmission(t *testing.T) {
	g := newTestGuard(t, 1)

	_, a := g.Begin(context.Background(), PageDaily, "a")
	defer a.Release()
	_, b := g.Begin(context.Background(), PageDaily, "b")
	defer b.Release()

	// Nothing superseded a, so it may still publish.
	if !g.Commit(a, &PageResult{Page: "a"}) {
		t.Error("evicted but unsuperseded ticket should commit")
	}
	if last, ok := g.Last(PageDaily, "a"); !ok || last.Page != "a" {
		t.Errorf("Last(a) = %+v, %v", last, ok)
	}

	_, b2 := g.Begin(context.Background(), PageDaily, "b")
	defer b2.Release()
	if g.Commit(b, &PageResult{Page: "b"}) {
		t.Error("superseded ticket must not commit after its state was evicted")
	}
}

func TestPageResult_Chart(t *testing.T) {
	res := &PageResult{}
	if _, ok := res.Chart(""); ok {
		t.Error("empty result has no chart")
	}
}
