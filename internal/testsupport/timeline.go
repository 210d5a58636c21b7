package testsupport

import (
	"testing"

	"cutline/internal/backend"
	"cutline/internal/backend/memory"
	"cutline/internal/timeline"
)

// Fixture is a timeline backed by an in-memory factory.
type Fixture struct {
	Timeline *timeline.Timeline
	Factory  *memory.Factory
	Video    *timeline.Track
	Audio    *timeline.Track
}

// NewFixture builds a timeline with a track for each requested kind. The
// timeline is released at cleanup and the test fails if any backend node
// leaked.
func NewFixture(t testing.TB, kinds backend.MediaKind, opts ...timeline.Option) *Fixture {
	t.Helper()

	f := &Fixture{Factory: memory.NewFactory(memory.Options{})}
	f.Timeline = timeline.New(f.Factory, opts...)
	if kinds.Has(backend.KindVideo) {
		f.Video = f.mustTrack(t, backend.KindVideo, "video/x-raw")
	}
	if kinds.Has(backend.KindAudio) {
		f.Audio = f.mustTrack(t, backend.KindAudio, "audio/x-raw")
	}

	t.Cleanup(func() {
		if err := f.Timeline.Release(); err != nil {
			t.Errorf("release timeline: %v", err)
		}
		if live := f.Factory.Live(); live != 0 {
			t.Errorf("%d backend nodes leaked", live)
		}
	})
	return f
}

func (f *Fixture) mustTrack(t testing.TB, kind backend.MediaKind, caps string) *timeline.Track {
	t.Helper()
	track, err := f.Timeline.NewTrack(kind, caps)
	if err != nil {
		t.Fatalf("create %s track: %v", kind, err)
	}
	return track
}

// SimpleLayer adds a new SimpleLayer to the fixture timeline.
func (f *Fixture) SimpleLayer(t testing.TB) *timeline.SimpleLayer {
	t.Helper()
	layer, err := f.Timeline.NewSimpleLayer()
	if err != nil {
		t.Fatalf("create simple layer: %v", err)
	}
	return layer
}

// NewClip creates a clip of kind with the given duration.
func NewClip(t testing.TB, kind timeline.ClipKind, supported backend.MediaKind, duration timeline.ClockTime) *timeline.Clip {
	t.Helper()
	clip := timeline.NewClip(kind, supported)
	if err := clip.SetDuration(duration); err != nil {
		t.Fatalf("set clip duration: %v", err)
	}
	return clip
}

// MustInsert appends each clip to layer.
func MustInsert(t testing.TB, layer *timeline.SimpleLayer, clips ...*timeline.Clip) {
	t.Helper()
	for _, clip := range clips {
		if err := layer.Insert(clip, -1); err != nil {
			t.Fatalf("insert %s: %v", clip, err)
		}
	}
}

// MemoryNode returns the in-memory node bound to obj.
func MemoryNode(t testing.TB, obj *timeline.TrackObject) *memory.Node {
	t.Helper()
	node, ok := obj.Node().(*memory.Node)
	if !ok {
		t.Fatalf("%s is not bound to an in-memory node", obj)
	}
	return node
}
