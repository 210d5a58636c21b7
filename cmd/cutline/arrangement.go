package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cutline/internal/backend"
	"cutline/internal/backend/memory"
	"cutline/internal/config"
	"cutline/internal/logging"
	"cutline/internal/timeline"
)

// clipSpec is one --clip argument: kind[:duration][:key=value,...].
type clipSpec struct {
	kind        timeline.ClipKind
	duration    time.Duration
	inPoint     time.Duration
	maxDuration time.Duration
	media       backend.MediaKind
	wipe        int
	pattern     int
	unlocked    bool
}

// effectSpec is one --effect argument: clip-index:media-kind.
type effectSpec struct {
	clip  int
	media backend.MediaKind
}

// moveSpec is one --move argument: from:to.
type moveSpec struct {
	from, to int
}

// splitSpec is one --split argument: clip-index@time.
type splitSpec struct {
	clip     int
	position time.Duration
}

type arrangeRequest struct {
	clips   []clipSpec
	effects []effectSpec
	moves   []moveSpec
	splits  []splitSpec
}

func parseArrangeRequest(cfg *config.Config, clips, effects, moves, splits []string) (arrangeRequest, error) {
	var req arrangeRequest
	for _, raw := range clips {
		spec, err := parseClipSpec(raw, cfg.TransitionDuration())
		if err != nil {
			return req, err
		}
		req.clips = append(req.clips, spec)
	}
	for _, raw := range effects {
		index, kind, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok {
			return req, fmt.Errorf("effect %q: expected clip-index:kind", raw)
		}
		clip, err := strconv.Atoi(index)
		if err != nil {
			return req, fmt.Errorf("effect %q: clip index: %w", raw, err)
		}
		media, ok := backend.ParseMediaKind(kind)
		if !ok || (media != backend.KindVideo && media != backend.KindAudio) {
			return req, fmt.Errorf("effect %q: kind must be video or audio", raw)
		}
		req.effects = append(req.effects, effectSpec{clip: clip, media: media})
	}
	for _, raw := range moves {
		from, to, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok {
			return req, fmt.Errorf("move %q: expected from:to", raw)
		}
		fromIdx, err := strconv.Atoi(from)
		if err != nil {
			return req, fmt.Errorf("move %q: %w", raw, err)
		}
		toIdx, err := strconv.Atoi(to)
		if err != nil {
			return req, fmt.Errorf("move %q: %w", raw, err)
		}
		req.moves = append(req.moves, moveSpec{from: fromIdx, to: toIdx})
	}
	for _, raw := range splits {
		index, at, ok := strings.Cut(strings.TrimSpace(raw), "@")
		if !ok {
			return req, fmt.Errorf("split %q: expected clip-index@time", raw)
		}
		clip, err := strconv.Atoi(index)
		if err != nil {
			return req, fmt.Errorf("split %q: clip index: %w", raw, err)
		}
		position, err := time.ParseDuration(at)
		if err != nil {
			return req, fmt.Errorf("split %q: %w", raw, err)
		}
		req.splits = append(req.splits, splitSpec{clip: clip, position: position})
	}
	return req, nil
}

func parseClipSpec(raw string, defaultTransition time.Duration) (clipSpec, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	kind, err := timeline.ParseClipKind(strings.ToLower(parts[0]))
	if err != nil {
		return clipSpec{}, fmt.Errorf("clip %q: %w", raw, err)
	}
	spec := clipSpec{kind: kind, media: backend.KindAudioVideo, wipe: timeline.DefaultWipe}

	if len(parts) > 1 && parts[1] != "" {
		spec.duration, err = time.ParseDuration(parts[1])
		if err != nil {
			return clipSpec{}, fmt.Errorf("clip %q: duration: %w", raw, err)
		}
	} else if kind == timeline.ClipTransition {
		spec.duration = defaultTransition
	} else {
		return clipSpec{}, fmt.Errorf("clip %q: duration required for %s clips", raw, kind)
	}
	if spec.duration <= 0 {
		return clipSpec{}, fmt.Errorf("clip %q: duration must be positive", raw)
	}

	if len(parts) > 2 {
		for _, pair := range strings.Split(strings.Join(parts[2:], ":"), ",") {
			if err := spec.apply(pair); err != nil {
				return clipSpec{}, fmt.Errorf("clip %q: %w", raw, err)
			}
		}
	}
	return spec, nil
}

func (s *clipSpec) apply(pair string) error {
	key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
	if !ok {
		if key == "unlocked" {
			s.unlocked = true
			return nil
		}
		return fmt.Errorf("option %q: expected key=value", pair)
	}
	var err error
	switch key {
	case "in":
		s.inPoint, err = time.ParseDuration(value)
	case "max":
		s.maxDuration, err = time.ParseDuration(value)
	case "wipe":
		s.wipe, err = strconv.Atoi(value)
	case "pattern":
		s.pattern, err = strconv.Atoi(value)
	case "kinds":
		media, valid := backend.ParseMediaKind(value)
		if !valid {
			return fmt.Errorf("option %q: unknown media kind", pair)
		}
		s.media = media
	case "unlocked":
		s.unlocked, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown clip option %q", key)
	}
	if err != nil {
		return fmt.Errorf("option %q: %w", pair, err)
	}
	return nil
}

// arrangement is a timeline with one simple layer built from an
// arrangeRequest.
type arrangement struct {
	factory  *memory.Factory
	timeline *timeline.Timeline
	layer    *timeline.SimpleLayer
	logger   *slog.Logger
}

func buildArrangement(cfg *config.Config, logger *slog.Logger, req arrangeRequest) (*arrangement, error) {
	factory := memory.NewFactory(memory.Options{FailRoles: cfg.FailRoles()})
	tl := timeline.New(factory, timeline.OptionsFromConfig(cfg, logger)...)
	a := &arrangement{factory: factory, timeline: tl, logger: logger}

	if cfg.Tracks.EnableVideo {
		if _, err := tl.NewTrack(backend.KindVideo, cfg.Tracks.VideoCaps); err != nil {
			return nil, errors.Join(fmt.Errorf("create video track: %w", err), a.release())
		}
	}
	if cfg.Tracks.EnableAudio {
		if _, err := tl.NewTrack(backend.KindAudio, cfg.Tracks.AudioCaps); err != nil {
			return nil, errors.Join(fmt.Errorf("create audio track: %w", err), a.release())
		}
	}
	layer, err := tl.NewSimpleLayer()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create layer: %w", err), a.release())
	}
	a.layer = layer

	if err := a.apply(req); err != nil {
		return nil, errors.Join(err, a.release())
	}
	tl.Sync()
	return a, nil
}

func (a *arrangement) apply(req arrangeRequest) error {
	for i, spec := range req.clips {
		clip, err := newClipFromSpec(spec, a.logger)
		if err != nil {
			return fmt.Errorf("clip %d: %w", i, err)
		}
		if err := a.layer.Insert(clip, -1); err != nil {
			return fmt.Errorf("insert clip %d: %w", i, err)
		}
		if spec.unlocked {
			for _, obj := range clip.TrackObjects() {
				obj.SetLocked(false)
			}
		}
	}
	for _, spec := range req.effects {
		clip := a.layer.Nth(spec.clip)
		if clip == nil {
			return fmt.Errorf("effect: no clip at index %d", spec.clip)
		}
		if err := clip.AddTopEffect(timeline.NewTrackObject(backend.RoleOperation, spec.media)); err != nil {
			return fmt.Errorf("effect on clip %d: %w", spec.clip, err)
		}
	}
	for _, spec := range req.splits {
		clip := a.layer.Nth(spec.clip)
		if clip == nil {
			return fmt.Errorf("split: no clip at index %d", spec.clip)
		}
		if _, err := clip.Split(backend.FromDuration(spec.position)); err != nil {
			return fmt.Errorf("split clip %d: %w", spec.clip, err)
		}
	}
	for _, spec := range req.moves {
		clip := a.layer.Nth(spec.from)
		if clip == nil {
			return fmt.Errorf("move: no clip at index %d", spec.from)
		}
		if err := a.layer.Move(clip, spec.to); err != nil {
			return fmt.Errorf("move clip %d: %w", spec.from, err)
		}
	}
	return nil
}

func newClipFromSpec(spec clipSpec, logger *slog.Logger) (*timeline.Clip, error) {
	clip := timeline.NewClip(spec.kind, spec.media,
		timeline.WithWipe(spec.wipe),
		timeline.WithPattern(spec.pattern),
		timeline.WithClipLogger(logger),
	)
	if spec.maxDuration > 0 {
		if err := clip.SetMaxDuration(backend.FromDuration(spec.maxDuration)); err != nil {
			return nil, err
		}
	}
	if err := clip.SetDuration(backend.FromDuration(spec.duration)); err != nil {
		return nil, err
	}
	if spec.inPoint > 0 {
		if err := clip.SetInPoint(backend.FromDuration(spec.inPoint)); err != nil {
			return nil, err
		}
	}
	return clip, nil
}

// release frees the timeline and reports backend nodes that outlived it.
func (a *arrangement) release() error {
	if err := a.timeline.Release(); err != nil {
		return fmt.Errorf("release timeline: %w", err)
	}
	if live := a.factory.Live(); live != 0 {
		logging.WarnWithContext(a.logger, "backend nodes outlived the timeline", "node_leak",
			logging.Int("live", live),
		)
	}
	return nil
}
