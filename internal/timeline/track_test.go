package timeline_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"cutline/internal/backend"
	"cutline/internal/backend/memory"
	"cutline/internal/testsupport"
	"cutline/internal/timeline"
)

func placedObject(start timeline.ClockTime, priority uint32) *timeline.TrackObject {
	obj := timeline.NewTrackObject(backend.RoleSource, backend.KindVideo)
	obj.SetStart(start)
	obj.SetDuration(second)
	obj.SetPriority(priority)
	return obj
}

func TestTrackKeepsMembersSorted(t *testing.T) {
	track, factory := newVideoTrack(t)
	late := placedObject(5*second, 2)
	early := placedObject(0, 0)
	tie := placedObject(5*second, 1)

	var added []*timeline.TrackObject
	track.ObjectAdded.Connect(func(obj *timeline.TrackObject) { added = append(added, obj) })
	for _, obj := range []*timeline.TrackObject{late, early, tie} {
		if err := track.Add(obj); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}
	if len(added) != 3 || factory.Live() != 3 {
		t.Fatalf("unexpected adds=%d live=%d", len(added), factory.Live())
	}

	assertOrder := func(want ...*timeline.TrackObject) {
		t.Helper()
		got := track.Members()
		if len(got) != len(want) {
			t.Fatalf("got %d members, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("member %d is %s starting at %s, want %s", i, got[i], got[i].Start(), want[i])
			}
		}
	}
	assertOrder(early, tie, late)

	early.SetStart(10 * second)
	assertOrder(tie, late, early)

	late.SetPriority(0)
	assertOrder(late, tie, early)

	for _, obj := range track.Members() {
		if err := track.Remove(obj); err != nil {
			t.Fatalf("Remove returned error: %v", err)
		}
	}
}

func TestTrackSortSurvivesRandomEdits(t *testing.T) {
	track, _ := newVideoTrack(t)
	rng := rand.New(rand.NewPCG(1, 2))

	var objs []*timeline.TrackObject
	for range 200 {
		switch op := rng.IntN(3); {
		case op == 0 || len(objs) == 0:
			obj := placedObject(timeline.ClockTime(rng.IntN(10))*second, uint32(rng.IntN(5)))
			if err := track.Add(obj); err != nil {
				t.Fatalf("Add returned error: %v", err)
			}
			objs = append(objs, obj)
		case op == 1:
			objs[rng.IntN(len(objs))].SetStart(timeline.ClockTime(rng.IntN(10)) * second)
		default:
			objs[rng.IntN(len(objs))].SetPriority(uint32(rng.IntN(5)))
		}

		members := track.Members()
		for i := 1; i < len(members); i++ {
			prev, cur := members[i-1], members[i]
			if prev.Start() > cur.Start() || (prev.Start() == cur.Start() && prev.Priority() > cur.Priority()) {
				t.Fatalf("members out of order at %d: (%s, %d) before (%s, %d)",
					i, prev.Start(), prev.Priority(), cur.Start(), cur.Priority())
			}
		}
	}

	for _, obj := range objs {
		if err := track.Remove(obj); err != nil {
			t.Fatalf("Remove returned error: %v", err)
		}
	}
}

func TestTrackAddConstraints(t *testing.T) {
	track, factory := newVideoTrack(t)
	other, err := timeline.NewTrack(backend.KindVideo, "video/x-raw", factory)
	if err != nil {
		t.Fatalf("NewTrack returned error: %v", err)
	}

	audio := timeline.NewTrackObject(backend.RoleSource, backend.KindAudio)
	err = track.Add(audio)
	if !errors.Is(err, timeline.ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if !errors.Is(err, timeline.ErrConstraint) {
		t.Fatal("kind mismatch should classify as a constraint violation")
	}

	obj := timeline.NewTrackObject(backend.RoleSource, backend.KindVideo)
	if err := track.Add(obj); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := other.Add(obj); !errors.Is(err, timeline.ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
	if !track.Contains(obj) || other.Contains(obj) {
		t.Fatal("failed add must not change membership")
	}

	materialized := timeline.NewTrackObject(backend.RoleSource, backend.KindVideo)
	if err := materialized.Materialize(factory); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if err := other.Add(materialized); !errors.Is(err, timeline.ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	_ = materialized.Unbind()
	if err := other.Add(nil); err == nil {
		t.Fatal("expected nil object to be rejected")
	}

	if err := other.Remove(obj); !errors.Is(err, timeline.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	_ = track.Remove(obj)
}

func TestTrackBindFailureLeavesObjectUnbound(t *testing.T) {
	factory := memory.NewFactory(memory.Options{FailRoles: []backend.Role{backend.RoleTransition}})
	track, err := timeline.NewTrack(backend.KindVideo, "video/x-raw", factory)
	if err != nil {
		t.Fatalf("NewTrack returned error: %v", err)
	}
	obj := timeline.NewTrackObject(backend.RoleTransition, backend.KindVideo)
	obj.SetStart(3 * second)
	_ = obj.SetPendingChildProperty("GstSMPTEAlpha::type", 5)

	if err := track.Add(obj); !errors.Is(err, timeline.ErrBind) {
		t.Fatalf("expected ErrBind, got %v", err)
	}
	if obj.Phase() != timeline.PhaseUnbound || obj.Track() != nil {
		t.Fatalf("object should stay unbound, phase=%s", obj.Phase())
	}
	if obj.Start() != 3*second || obj.PendingChildProperties()["GstSMPTEAlpha::type"] != 5 {
		t.Fatal("pending values must survive a failed bind")
	}
	if len(track.Members()) != 0 {
		t.Fatal("failed add must not insert the object")
	}

	factory.SetFailRole(backend.RoleTransition, false)
	if err := track.Add(obj); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if v, _ := obj.ChildProperty("type"); v != 5 {
		t.Fatalf("pending child value not applied on retry, got %v", v)
	}
	_ = track.Remove(obj)
}

func TestTrackDurationFollowsComposition(t *testing.T) {
	track, _ := newVideoTrack(t)
	rec := testsupport.Record(track)

	a := placedObject(0, 0)
	a.SetDuration(10 * second)
	b := placedObject(10*second, 0)
	b.SetDuration(5 * second)
	for _, obj := range []*timeline.TrackObject{a, b} {
		if err := track.Add(obj); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}
	if track.Duration() != 15*second {
		t.Fatalf("unexpected duration %s", track.Duration())
	}

	b.SetActive(false)
	if track.Duration() != 10*second {
		t.Fatalf("inactive objects do not count, got %s", track.Duration())
	}
	if got := rec.Values(timeline.PropDuration); len(got) == 0 || got[len(got)-1] != 10*second {
		t.Fatalf("expected duration notifications ending at 10s, got %v", got)
	}

	track.SetCaps("video/x-raw,width=1920")
	track.SetCaps("video/x-raw,width=1920")
	if rec.Count(timeline.PropCaps) != 1 || track.Caps() != "video/x-raw,width=1920" {
		t.Fatalf("unexpected caps notifications %d", rec.Count(timeline.PropCaps))
	}

	for _, obj := range track.Members() {
		_ = track.Remove(obj)
	}
}

func TestTrackReleaseRequiresEmpty(t *testing.T) {
	track, factory := newVideoTrack(t)
	obj := placedObject(0, 0)
	if err := track.Add(obj); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := track.Release(); !errors.Is(err, timeline.ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}

	var removed []*timeline.TrackObject
	track.ObjectRemoved.Connect(func(obj *timeline.TrackObject) { removed = append(removed, obj) })
	if err := track.Remove(obj); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(removed) != 1 || obj.Phase() != timeline.PhaseUnbound || factory.Live() != 0 {
		t.Fatalf("remove should unbind and release, removed=%d live=%d", len(removed), factory.Live())
	}
	if obj.Start() != 0 || obj.Duration() != second {
		t.Fatal("removed object keeps its timing as pending values")
	}

	if err := track.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := track.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}
	if err := track.Add(obj); !errors.Is(err, timeline.ErrBind) {
		t.Fatalf("expected ErrBind after release, got %v", err)
	}
}

func TestNewTrackFailsWithoutComposition(t *testing.T) {
	factory := memory.NewFactory(memory.Options{FailCompositions: true})
	if _, err := timeline.NewTrack(backend.KindVideo, "video/x-raw", factory); !errors.Is(err, timeline.ErrBind) {
		t.Fatalf("expected ErrBind, got %v", err)
	}
	if _, err := timeline.NewTrack(backend.KindVideo, "video/x-raw", nil); !errors.Is(err, timeline.ErrBind) {
		t.Fatalf("expected ErrBind without factory, got %v", err)
	}
}
