package timeline_test

import (
	"errors"
	"testing"

	"cutline/internal/backend"
	"cutline/internal/testsupport"
	"cutline/internal/timeline"
)

func addToPlainLayer(t *testing.T, fx *testsupport.Fixture, clips ...*timeline.Clip) *timeline.Layer {
	t.Helper()
	layer := timeline.NewLayer()
	if err := fx.Timeline.AddLayer(layer); err != nil {
		t.Fatalf("AddLayer returned error: %v", err)
	}
	for _, clip := range clips {
		if err := layer.AddClip(clip); err != nil {
			t.Fatalf("AddClip returned error: %v", err)
		}
	}
	return layer
}

func TestClipPropagatesToLockedChildren(t *testing.T) {
	fx := testsupport.NewFixture(t, backend.KindAudioVideo)
	clip := testsupport.NewClip(t, timeline.ClipSource, backend.KindAudioVideo, 5*second)
	addToPlainLayer(t, fx, clip)

	video := clip.TrackObjectFor(fx.Video)
	audio := clip.TrackObjectFor(fx.Audio)
	if video == nil || audio == nil {
		t.Fatal("expected one object per track")
	}
	if video.Clip() != clip || video.Duration() != 5*second {
		t.Fatal("objects should start with the clip timing")
	}

	if err := clip.SetStart(3 * second); err != nil {
		t.Fatalf("SetStart returned error: %v", err)
	}
	if err := clip.SetInPoint(second); err != nil {
		t.Fatalf("SetInPoint returned error: %v", err)
	}
	if err := clip.SetPriority(5); err != nil {
		t.Fatalf("SetPriority returned error: %v", err)
	}
	for _, obj := range []*timeline.TrackObject{video, audio} {
		if obj.Start() != 3*second || obj.InPoint() != second || obj.Priority() != 5 {
			t.Fatalf("%s not in step: start=%s in=%s priority=%d", obj, obj.Start(), obj.InPoint(), obj.Priority())
		}
	}

	audio.SetLocked(false)
	if err := clip.SetStart(4 * second); err != nil {
		t.Fatalf("SetStart returned error: %v", err)
	}
	if video.Start() != 4*second || audio.Start() != 3*second {
		t.Fatalf("unlocked object must stay put: video=%s audio=%s", video.Start(), audio.Start())
	}

	video.SetStart(6 * second)
	if clip.Start() != 6*second {
		t.Fatalf("locked child should drag the clip, got %s", clip.Start())
	}
	audio.SetStart(second)
	if clip.Start() != 6*second {
		t.Fatal("unlocked child must not drag the clip")
	}
}

func TestBackendChangeDragsClip(t *testing.T) {
	fx := testsupport.NewFixture(t, backend.KindAudioVideo)
	clip := testsupport.NewClip(t, timeline.ClipSource, backend.KindAudioVideo, 5*second)
	addToPlainLayer(t, fx, clip)

	rec := testsupport.Record(clip)
	video := clip.TrackObjectFor(fx.Video)
	testsupport.MemoryNode(t, video).Renegotiate(backend.Fields{Duration: 8 * second}, backend.MaskDuration)
	fx.Timeline.Sync()

	if clip.Duration() != 8*second {
		t.Fatalf("clip should follow the backend, got %s", clip.Duration())
	}
	if audio := clip.TrackObjectFor(fx.Audio); audio.Duration() != 8*second {
		t.Fatalf("sibling should follow the clip, got %s", audio.Duration())
	}
	if rec.Count(timeline.PropDuration) != 1 {
		t.Fatalf("expected one clip duration notification, got %d", rec.Count(timeline.PropDuration))
	}
	if fx.Timeline.Duration() != 8*second {
		t.Fatalf("unexpected timeline duration %s", fx.Timeline.Duration())
	}
}

func TestClipTimingConstraints(t *testing.T) {
	fx := testsupport.NewFixture(t, backend.KindVideo)
	clip := testsupport.NewClip(t, timeline.ClipSource, backend.KindVideo, 20*second)
	addToPlainLayer(t, fx, clip)

	if err := clip.SetMaxDuration(10 * second); err != nil {
		t.Fatalf("SetMaxDuration returned error: %v", err)
	}
	if clip.Duration() != 10*second {
		t.Fatalf("duration should shrink to the max, got %s", clip.Duration())
	}
	obj := clip.TrackObjectFor(fx.Video)
	if obj.MaxDuration() != 10*second || obj.Duration() != 10*second {
		t.Fatalf("object limit not propagated: max=%s duration=%s", obj.MaxDuration(), obj.Duration())
	}
	if err := clip.SetDuration(30 * second); err != nil || clip.Duration() != 10*second {
		t.Fatalf("duration must be clamped, got %s %v", clip.Duration(), err)
	}
	if err := clip.SetInPoint(10 * second); !errors.Is(err, timeline.ErrConstraint) {
		t.Fatalf("expected ErrConstraint for in-point past the media, got %v", err)
	}
	if clip.InPoint() != 0 {
		t.Fatal("rejected in-point must not change the clip")
	}

	transition := timeline.NewClip(timeline.ClipTransition, backend.KindVideo)
	if err := transition.SetMaxDuration(5 * second); !errors.Is(err, timeline.ErrNoInternalSource) {
		t.Fatalf("expected ErrNoInternalSource, got %v", err)
	}
}

func TestClipTopEffects(t *testing.T) {
	fx := testsupport.NewFixture(t, backend.KindVideo)
	clip := testsupport.NewClip(t, timeline.ClipSource, backend.KindVideo, 5*second)
	if err := clip.SetPriority(10); err != nil {
		t.Fatalf("SetPriority returned error: %v", err)
	}
	addToPlainLayer(t, fx, clip)
	core := clip.TrackObjectFor(fx.Video)
	rec := testsupport.Record(clip)

	first := timeline.NewTrackObject(backend.RoleOperation, backend.KindVideo)
	if err := clip.AddTopEffect(first); err != nil {
		t.Fatalf("AddTopEffect returned error: %v", err)
	}
	if first.Track() != fx.Video || first.Duration() != 5*second {
		t.Fatal("effect should be attached to the video track with the clip timing")
	}
	if first.Priority() != 10 || core.Priority() != 11 || clip.Height() != 2 {
		t.Fatalf("unexpected priorities effect=%d core=%d height=%d", first.Priority(), core.Priority(), clip.Height())
	}

	other := timeline.NewTrackObject(backend.RoleOperation, backend.KindVideo)
	if err := clip.AddTrackObject(other); err != nil {
		t.Fatalf("AddTrackObject returned error: %v", err)
	}
	if other.Priority() != 11 || core.Priority() != 12 || clip.Height() != 3 {
		t.Fatalf("unexpected priorities other=%d core=%d height=%d", other.Priority(), core.Priority(), clip.Height())
	}

	if err := clip.SetTopEffectIndex(other, 0); err != nil {
		t.Fatalf("SetTopEffectIndex returned error: %v", err)
	}
	if other.Priority() != 10 || first.Priority() != 11 || clip.TopEffectIndex(first) != 1 {
		t.Fatalf("effects not renumbered: other=%d first=%d", other.Priority(), first.Priority())
	}
	if err := clip.SetTopEffectIndex(first, 5); !errors.Is(err, timeline.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	if err := clip.AddTopEffect(timeline.NewTrackObject(backend.RoleSource, backend.KindVideo)); !errors.Is(err, timeline.ErrWrongRole) {
		t.Fatalf("expected ErrWrongRole, got %v", err)
	}
	if err := clip.AddTopEffect(first); !errors.Is(err, timeline.ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}

	if err := clip.SetPriority(20); err != nil {
		t.Fatalf("SetPriority returned error: %v", err)
	}
	if other.Priority() != 20 || first.Priority() != 21 || core.Priority() != 22 {
		t.Fatalf("priority change not applied with offsets: %d %d %d", other.Priority(), first.Priority(), core.Priority())
	}

	if err := clip.RemoveTopEffect(other); err != nil {
		t.Fatalf("RemoveTopEffect returned error: %v", err)
	}
	if other.Track() != nil || other.Phase() != timeline.PhaseUnbound || other.Clip() != nil {
		t.Fatal("removed effect should leave its track and clip")
	}
	if first.Priority() != 20 || core.Priority() != 21 || clip.Height() != 2 {
		t.Fatalf("unexpected priorities after removal first=%d core=%d", first.Priority(), core.Priority())
	}
	if got := rec.Values(timeline.PropHeight); len(got) != 3 || got[2] != uint32(2) {
		t.Fatalf("unexpected height notifications %v", got)
	}
	if err := clip.RemoveTopEffect(other); !errors.Is(err, timeline.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestClipSplit(t *testing.T) {
	fx := testsupport.NewFixture(t, backend.KindVideo)
	layer := fx.SimpleLayer(t)
	clip := testsupport.NewClip(t, timeline.ClipSource, backend.KindVideo, 10*second)
	if err := clip.SetInPoint(second); err != nil {
		t.Fatalf("SetInPoint returned error: %v", err)
	}
	testsupport.MustInsert(t, layer, clip)

	core := clip.TrackObjectFor(fx.Video)
	if err := core.SetChildProperty("hue", 0.3); err != nil {
		t.Fatalf("SetChildProperty returned error: %v", err)
	}
	effect := timeline.NewTrackObject(backend.RoleOperation, backend.KindVideo)
	if err := clip.AddTopEffect(effect); err != nil {
		t.Fatalf("AddTopEffect returned error: %v", err)
	}
	if err := effect.SetChildProperty("method", 3); err != nil {
		t.Fatalf("SetChildProperty returned error: %v", err)
	}

	if _, err := clip.Split(0); !errors.Is(err, timeline.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition at the clip start, got %v", err)
	}
	next, err := clip.Split(4 * second)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}

	if clip.Duration() != 4*second {
		t.Fatalf("original should keep the head, got %s", clip.Duration())
	}
	if next.Start() != 4*second || next.Duration() != 6*second || next.InPoint() != 5*second {
		t.Fatalf("unexpected tail start=%s duration=%s in=%s", next.Start(), next.Duration(), next.InPoint())
	}
	if layer.Len() != 2 || layer.Nth(1) != next {
		t.Fatal("tail should follow the original in the layer")
	}

	tail := next.TrackObjectFor(fx.Video)
	if tail == nil || tail.InPoint() != 5*second {
		t.Fatal("tail object should be created with the shifted in-point")
	}
	if v, err := tail.ChildProperty("hue"); err != nil || v != 0.3 {
		t.Fatalf("child property not copied: %v %v", v, err)
	}
	effects := next.TopEffects()
	if len(effects) != 1 || effects[0].Track() != fx.Video {
		t.Fatal("effects should be copied and attached")
	}
	if v, err := effects[0].ChildProperty("method"); err != nil || v != 3 {
		t.Fatalf("effect child property not copied: %v %v", v, err)
	}
	if len(fx.Video.Members()) != 4 {
		t.Fatalf("expected two cores and two effects in the track, got %d", len(fx.Video.Members()))
	}

	if _, err := clip.Split(4 * second); !errors.Is(err, timeline.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition at the clip end, got %v", err)
	}
}
