package timeline

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"cutline/internal/backend"
	"cutline/internal/logging"
	"cutline/internal/signal"
)

// Timeline owns tracks and layers and keeps each clip's track objects in
// step with the set of tracks.
type Timeline struct {
	signal.Notifier

	TrackAdded   signal.Signal[*Track]
	TrackRemoved signal.Signal[*Track]
	LayerAdded   signal.Signal[*Layer]
	LayerRemoved signal.Signal[*Layer]

	factory backend.Factory
	opts    []Option
	logger  *slog.Logger

	mu           sync.Mutex
	tracks       []*Track
	layers       []*Layer
	trackWatches map[*Track]func()
	detaching    map[*Clip]bool
}

// New creates an empty timeline whose tracks draw nodes from factory.
func New(factory backend.Factory, opts ...Option) *Timeline {
	o := buildOptions(opts)
	return &Timeline{
		factory:      factory,
		opts:         opts,
		logger:       logging.NewComponentLogger(o.logger, "timeline"),
		trackWatches: map[*Track]func(){},
		detaching:    map[*Clip]bool{},
	}
}

// Factory returns the backend factory shared by the tracks.
func (tl *Timeline) Factory() backend.Factory { return tl.factory }

// NewTrack creates a track with the timeline's options and adds it.
func (tl *Timeline) NewTrack(kind backend.MediaKind, caps string) (*Track, error) {
	track, err := NewTrack(kind, caps, tl.factory, tl.opts...)
	if err != nil {
		return nil, err
	}
	if err := tl.AddTrack(track); err != nil {
		_ = track.Release()
		return nil, err
	}
	return track, nil
}

// NewSimpleLayer creates a SimpleLayer below the existing layers and adds it.
func (tl *Timeline) NewSimpleLayer() (*SimpleLayer, error) {
	layer := NewSimpleLayer(tl.opts...)
	layer.SetPriority(uint32(len(tl.Layers())))
	if err := tl.AddLayer(layer.Layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// Tracks returns the tracks in the order they were added.
func (tl *Timeline) Tracks() []*Track {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return slices.Clone(tl.tracks)
}

// Layers returns the layers in the order they were added.
func (tl *Timeline) Layers() []*Layer {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return slices.Clone(tl.layers)
}

// AddTrack adds track and gives every clip already in a layer an object in
// it. On failure the track is left out and the clips are unchanged.
func (tl *Timeline) AddTrack(track *Track) error {
	if track.Timeline() != nil {
		return Wrap(ErrAlreadyOwned, "timeline", "add track", track.String(), nil)
	}
	track.setTimeline(tl)

	var attached []*Clip
	for _, clip := range tl.allClips() {
		if err := tl.attachClipToTrack(clip, track); err != nil {
			for _, done := range attached {
				tl.detachClipFromTrack(done, track)
			}
			track.setTimeline(nil)
			return err
		}
		attached = append(attached, clip)
	}

	unwatch := track.ObjectRemoved.Connect(tl.objectRemoved)
	tl.mu.Lock()
	tl.tracks = append(tl.tracks, track)
	tl.trackWatches[track] = unwatch
	tl.mu.Unlock()

	tl.logger.Debug("track added", logging.String("track", track.String()), logging.Int("clips", len(attached)))
	tl.TrackAdded.Emit(track)
	return nil
}

// RemoveTrack drops every object from track and detaches it. Clips keep
// their layer even when they lose their last object this way.
func (tl *Timeline) RemoveTrack(track *Track) error {
	tl.mu.Lock()
	idx := slices.Index(tl.tracks, track)
	if idx < 0 {
		tl.mu.Unlock()
		return Wrap(ErrNotMember, "timeline", "remove track", track.String(), nil)
	}
	tl.tracks = slices.Delete(tl.tracks, idx, idx+1)
	unwatch := tl.trackWatches[track]
	delete(tl.trackWatches, track)
	tl.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	for _, clip := range tl.allClips() {
		tl.detachClipFromTrack(clip, track)
	}
	for _, obj := range track.Members() {
		_ = track.Remove(obj)
	}
	track.setTimeline(nil)

	tl.logger.Debug("track removed", logging.String("track", track.String()))
	tl.TrackRemoved.Emit(track)
	return nil
}

// AddLayer adds layer and attaches the clips it already holds.
func (tl *Timeline) AddLayer(layer *Layer) error {
	if layer.Timeline() != nil {
		return Wrap(ErrAlreadyOwned, "timeline", "add layer", layer.String(), nil)
	}
	layer.setTimeline(tl)

	var attached []*Clip
	for _, clip := range layer.Clips() {
		if err := tl.attachClip(clip); err != nil {
			for _, done := range attached {
				tl.detachClip(done)
			}
			layer.setTimeline(nil)
			return err
		}
		attached = append(attached, clip)
	}

	tl.mu.Lock()
	tl.layers = append(tl.layers, layer)
	tl.mu.Unlock()

	tl.logger.Debug("layer added", logging.String("layer", layer.String()), logging.Int("clips", len(attached)))
	tl.LayerAdded.Emit(layer)
	return nil
}

// RemoveLayer detaches layer. Its clips stay in the layer without track
// objects.
func (tl *Timeline) RemoveLayer(layer *Layer) error {
	tl.mu.Lock()
	idx := slices.Index(tl.layers, layer)
	if idx < 0 {
		tl.mu.Unlock()
		return Wrap(ErrNotMember, "timeline", "remove layer", layer.String(), nil)
	}
	tl.layers = slices.Delete(tl.layers, idx, idx+1)
	tl.mu.Unlock()

	for _, clip := range layer.Clips() {
		tl.detachClip(clip)
	}
	layer.setTimeline(nil)

	tl.logger.Debug("layer removed", logging.String("layer", layer.String()))
	tl.LayerRemoved.Emit(layer)
	return nil
}

// Duration is the longest track duration.
func (tl *Timeline) Duration() ClockTime {
	var longest ClockTime
	for _, track := range tl.Tracks() {
		longest = max(longest, track.Duration())
	}
	return longest
}

// Sync drains the backend change queue of every track.
func (tl *Timeline) Sync() {
	for _, track := range tl.Tracks() {
		track.Sync()
	}
}

// Release removes every layer and track and frees their backend resources.
func (tl *Timeline) Release() error {
	var errs []error
	for _, layer := range tl.Layers() {
		errs = append(errs, tl.RemoveLayer(layer))
	}
	for _, track := range tl.Tracks() {
		errs = append(errs, tl.RemoveTrack(track), track.Release())
	}
	return errors.Join(errs...)
}

func (tl *Timeline) allClips() []*Clip {
	var clips []*Clip
	for _, layer := range tl.Layers() {
		clips = append(clips, layer.Clips()...)
	}
	return clips
}

// attachClip creates the clip's objects in every track and places its top
// effects. Nothing stays attached when one of them fails.
func (tl *Timeline) attachClip(clip *Clip) error {
	for _, track := range tl.Tracks() {
		if err := tl.attachClipToTrack(clip, track); err != nil {
			tl.detachClip(clip)
			logging.WarnWithContext(tl.logger, "clip could not be attached", "clip_attach_failed",
				logging.String("clip", clip.String()),
				logging.String("track", track.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "clip left out of the layer"),
			)
			return err
		}
	}
	for _, effect := range clip.TopEffects() {
		if effect.Track() != nil {
			continue
		}
		if err := tl.attachTrackObject(clip, effect); err != nil {
			tl.detachClip(clip)
			return err
		}
	}
	return nil
}

func (tl *Timeline) attachClipToTrack(clip *Clip, track *Track) error {
	if clip.TrackObjectFor(track) != nil {
		return nil
	}
	obj, ok := clip.CreateTrackObjectFor(track)
	if !ok {
		return nil
	}
	if err := track.Add(obj); err != nil {
		_ = clip.RemoveTrackObject(obj)
		return err
	}
	return nil
}

// attachTrackObject adds a clip-owned object to the first track of its kind.
// Objects with no matching track stay detached.
func (tl *Timeline) attachTrackObject(clip *Clip, obj *TrackObject) error {
	for _, track := range tl.Tracks() {
		if track.Kind() == obj.Kind() {
			return track.Add(obj)
		}
	}
	tl.logger.Debug("no track for object", logging.String("clip", clip.String()), logging.String("object", obj.String()))
	return nil
}

// detachClip removes the clip's objects from their tracks. Core objects are
// dropped from the clip; top effects stay owned by it.
func (tl *Timeline) detachClip(clip *Clip) {
	tl.mu.Lock()
	tl.detaching[clip] = true
	tl.mu.Unlock()
	defer func() {
		tl.mu.Lock()
		delete(tl.detaching, clip)
		tl.mu.Unlock()
	}()

	for _, track := range tl.Tracks() {
		tl.detachClipFromTrack(clip, track)
	}
	for _, obj := range clip.TrackObjects() {
		if obj.Track() == nil {
			_ = clip.RemoveTrackObject(obj)
		}
	}
}

func (tl *Timeline) detachClipFromTrack(clip *Clip, track *Track) {
	for _, effect := range clip.TopEffects() {
		if effect.Track() == track {
			_ = track.Remove(effect)
		}
	}
	obj := clip.TrackObjectFor(track)
	if obj == nil {
		return
	}
	if err := track.Remove(obj); err != nil {
		tl.logger.Debug("object already gone from track", logging.String("object", obj.String()), logging.Error(err))
	}
	if obj.Clip() == clip {
		_ = clip.RemoveTrackObject(obj)
	}
}

// objectRemoved drops the core object from its clip. A clip that lost its
// last object to a removal made directly on the track leaves its layer.
func (tl *Timeline) objectRemoved(obj *TrackObject) {
	clip := obj.Clip()
	if clip == nil || obj.Role() == backend.RoleOperation {
		return
	}
	_ = clip.RemoveTrackObject(obj)

	tl.mu.Lock()
	detaching := tl.detaching[clip]
	tl.mu.Unlock()
	if detaching {
		return
	}

	layer := clip.Layer()
	if layer == nil || len(clip.TrackObjects()) > 0 {
		return
	}
	if err := layer.RemoveClip(clip); err != nil {
		logging.WarnWithContext(tl.logger, "empty clip could not leave its layer", "clip_remove_failed",
			logging.String("clip", clip.String()),
			logging.Error(err),
		)
		return
	}
	tl.logger.Debug("clip dropped after losing its last object", logging.String("clip", clip.String()))
}
