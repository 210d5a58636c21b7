package memory

import "cutline/internal/backend"

type elementTemplate struct {
	typeName string
	params   []backend.ParamSpec
}

type catalogKey struct {
	role backend.Role
	kind backend.MediaKind
}

// Catalog lists the child elements instantiated inside each node flavour.
type Catalog map[catalogKey][]elementTemplate

func rw(owner, name string, def any, blurb string) backend.ParamSpec {
	return backend.ParamSpec{Name: name, Owner: owner, Blurb: blurb, Default: def, Readable: true, Writable: true}
}

func ro(owner, name string, def any, blurb string) backend.ParamSpec {
	return backend.ParamSpec{Name: name, Owner: owner, Blurb: blurb, Default: def, Readable: true}
}

func construct(owner, name string, def any, blurb string) backend.ParamSpec {
	return backend.ParamSpec{Name: name, Owner: owner, Blurb: blurb, Default: def, Readable: true, Writable: true, Construct: true}
}

// DefaultCatalog mirrors the element layout a GStreamer-based engine uses
// for each role.
func DefaultCatalog() Catalog {
	uriDecode := elementTemplate{
		typeName: "GstURIDecodeBin",
		params: []backend.ParamSpec{
			construct("GstURIDecodeBin", "uri", "", "URI to decode"),
			rw("GstURIDecodeBin", "buffer-size", int64(-1), "Buffer size when buffering streams"),
		},
	}
	deinterlace := elementTemplate{
		typeName: "GstDeinterlace",
		params: []backend.ParamSpec{
			rw("GstDeinterlace", "mode", 0, "Deinterlace mode"),
			rw("GstDeinterlace", "method", 4, "Deinterlace method"),
			rw("GstDeinterlace", "fields", 0, "Fields to use for deinterlacing"),
		},
	}
	videoFlip := elementTemplate{
		typeName: "GstVideoFlip",
		params: []backend.ParamSpec{
			rw("GstVideoFlip", "method", 0, "Video flip method"),
		},
	}
	videoBalance := elementTemplate{
		typeName: "GstVideoBalance",
		params: []backend.ParamSpec{
			rw("GstVideoBalance", "contrast", 1.0, "contrast"),
			rw("GstVideoBalance", "brightness", 0.0, "brightness"),
			rw("GstVideoBalance", "hue", 0.0, "hue"),
			rw("GstVideoBalance", "saturation", 1.0, "saturation"),
		},
	}
	volume := elementTemplate{
		typeName: "GstVolume",
		params: []backend.ParamSpec{
			rw("GstVolume", "volume", 1.0, "volume factor"),
			rw("GstVolume", "mute", false, "mute channel"),
		},
	}
	smpte := elementTemplate{
		typeName: "GstSMPTEAlpha",
		params: []backend.ParamSpec{
			rw("GstSMPTEAlpha", "type", 1, "The type of transition to use"),
			rw("GstSMPTEAlpha", "border", 0, "The border width of the transition"),
			rw("GstSMPTEAlpha", "invert", false, "Invert transition mask"),
			rw("GstSMPTEAlpha", "depth", 16, "Depth of the mask in bits"),
			ro("GstSMPTEAlpha", "position", 0.0, "Position of the transition"),
		},
	}
	videoTest := elementTemplate{
		typeName: "GstVideoTestSrc",
		params: []backend.ParamSpec{
			rw("GstVideoTestSrc", "pattern", 0, "Type of test pattern to generate"),
			rw("GstVideoTestSrc", "foreground-color", uint32(0xffffffff), "Foreground color"),
			rw("GstVideoTestSrc", "background-color", uint32(0xff000000), "Background color"),
			rw("GstBaseSrc", "is-live", false, "Whether to act as a live source"),
		},
	}
	audioTest := elementTemplate{
		typeName: "GstAudioTestSrc",
		params: []backend.ParamSpec{
			rw("GstAudioTestSrc", "wave", 0, "Oscillator waveform"),
			rw("GstAudioTestSrc", "freq", 440.0, "Frequency of test signal"),
			rw("GstAudioTestSrc", "volume", 0.8, "Volume of test signal"),
			rw("GstBaseSrc", "is-live", false, "Whether to act as a live source"),
		},
	}
	audioEcho := elementTemplate{
		typeName: "GstAudioEcho",
		params: []backend.ParamSpec{
			rw("GstAudioEcho", "delay", uint64(1), "Delay of the echo in nanoseconds"),
			rw("GstAudioEcho", "intensity", 0.0, "Intensity of the echo"),
			rw("GstAudioEcho", "feedback", 0.0, "Amount of feedback"),
		},
	}

	return Catalog{
		{backend.RoleSource, backend.KindVideo}:     {uriDecode, deinterlace, videoFlip, videoBalance},
		{backend.RoleSource, backend.KindAudio}:     {uriDecode, volume},
		{backend.RoleTransition, backend.KindVideo}: {smpte},
		{backend.RoleTransition, backend.KindAudio}: {volume},
		{backend.RoleGenerator, backend.KindVideo}:  {videoTest},
		{backend.RoleGenerator, backend.KindAudio}:  {audioTest},
		{backend.RoleOperation, backend.KindVideo}:  {videoBalance, videoFlip},
		{backend.RoleOperation, backend.KindAudio}:  {volume, audioEcho},
		{backend.RoleGenerator, backend.KindText}:   {},
		{backend.RoleSource, backend.KindText}:      {},
		{backend.RoleOperation, backend.KindText}:   {},
		{backend.RoleTransition, backend.KindText}:  {},
	}
}

func (c Catalog) lookup(role backend.Role, kind backend.MediaKind) ([]elementTemplate, bool) {
	tmpls, ok := c[catalogKey{role: role, kind: kind}]
	return tmpls, ok
}
