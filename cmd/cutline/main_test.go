package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutline/internal/backend"
	"cutline/internal/testsupport"
	"cutline/internal/timeline"
)

func writeTestConfig(t *testing.T, opts ...testsupport.ConfigOption) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CUTLINE_LOG_LEVEL", "")
	opts = append([]testsupport.ConfigOption{testsupport.WithLogLevel("error")}, opts...)
	return testsupport.WriteConfig(t, testsupport.NewConfig(t, opts...))
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeReport(t *testing.T, out string) arrangeReport {
	t.Helper()
	var report arrangeReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	return report
}

func TestArrangeTable(t *testing.T) {
	configPath := writeTestConfig(t, testsupport.WithQueueSize(4))

	out, _, err := runCLI(t, []string{"arrange",
		"--clip", "source:10s",
		"--clip", "transition:2s",
		"--clip", "source:8s",
	}, configPath)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	requireContains(t, out, "KIND")
	requireContains(t, out, "transition")
	requireContains(t, out, "0:00:08.000000000")
	requireContains(t, out, "Layer valid: yes")
	requireContains(t, out, "Timeline duration: 0:00:16.000000000")
}

func TestArrangeJSONPlacesTransitionOverlap(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"arrange", "--json",
		"--clip", "source:10s",
		"--clip", "transition:2s",
		"--clip", "source:8s",
	}, configPath)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	report := decodeReport(t, out)
	if !report.Valid {
		t.Fatal("expected a valid layer")
	}
	if len(report.Clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(report.Clips))
	}
	wantStarts := []uint64{0, uint64(8 * timeline.Second), uint64(8 * timeline.Second)}
	for i, want := range wantStarts {
		if report.Clips[i].StartNS != want {
			t.Fatalf("clip %d start = %d, want %d", i, report.Clips[i].StartNS, want)
		}
	}
	if report.Clips[0].Objects != 2 {
		t.Fatalf("expected a video and an audio object, got %d", report.Clips[0].Objects)
	}
	if report.Clips[2].Priority != 1 {
		t.Fatalf("second source priority = %d, want 1", report.Clips[2].Priority)
	}
	if report.DurationNS != uint64(16*timeline.Second) {
		t.Fatalf("timeline duration = %d", report.DurationNS)
	}
}

func TestArrangeDefaultTransitionDurationAndInvalidLayer(t *testing.T) {
	configPath := writeTestConfig(t, testsupport.WithTracks(true, false))

	out, _, err := runCLI(t, []string{"arrange", "--json", "--clip", "transition", "--clip", "source:4s"}, configPath)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	report := decodeReport(t, out)
	if report.Valid {
		t.Fatal("a layer starting with a transition should be invalid")
	}
	if report.Clips[0].DurationNS != uint64(500*backend.Millisecond) {
		t.Fatalf("transition duration = %d, want default 500ms", report.Clips[0].DurationNS)
	}
	if report.Clips[0].Objects != 1 {
		t.Fatalf("audio track disabled, expected one object, got %d", report.Clips[0].Objects)
	}
}

func TestArrangeSplitAndMove(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"arrange", "--json",
		"--clip", "source:10s:in=1s,max=30s",
		"--clip", "generator:3s:pattern=2",
		"--split", "0@4s",
		"--move", "0:-1",
	}, configPath)
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}
	report := decodeReport(t, out)
	if len(report.Clips) != 3 {
		t.Fatalf("expected split to add a clip, got %d", len(report.Clips))
	}
	// After the split: head(4s) tail(6s) generator(3s); the head moved last.
	wantDurations := []uint64{uint64(6 * timeline.Second), uint64(3 * timeline.Second), uint64(4 * timeline.Second)}
	for i, want := range wantDurations {
		if report.Clips[i].DurationNS != want {
			t.Fatalf("clip %d duration = %d, want %d", i, report.Clips[i].DurationNS, want)
		}
	}
	if report.Clips[0].InPoint != (5 * timeline.Second).String() {
		t.Fatalf("tail in-point = %s, want 5s", report.Clips[0].InPoint)
	}
	if report.Clips[2].StartNS != uint64(9*timeline.Second) {
		t.Fatalf("moved clip start = %d, want 9s", report.Clips[2].StartNS)
	}
}

func TestArrangeRejectsAdjacentTransitions(t *testing.T) {
	configPath := writeTestConfig(t)

	_, _, err := runCLI(t, []string{"arrange",
		"--clip", "source:4s",
		"--clip", "transition:1s",
		"--clip", "transition:1s",
	}, configPath)
	if !errors.Is(err, timeline.ErrConstraint) {
		t.Fatalf("expected constraint error, got %v", err)
	}
}

func TestArrangeBackendFailure(t *testing.T) {
	configPath := writeTestConfig(t, testsupport.WithFailRoles("transition"))

	_, _, err := runCLI(t, []string{"arrange", "--clip", "source:4s", "--clip", "transition:1s", "--clip", "source:4s"}, configPath)
	if !errors.Is(err, timeline.ErrBind) {
		t.Fatalf("expected bind error, got %v", err)
	}
}

func TestArrangeFlagErrors(t *testing.T) {
	configPath := writeTestConfig(t)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "no clips", args: []string{"arrange"}, want: "at least one --clip"},
		{name: "unknown kind", args: []string{"arrange", "--clip", "title:2s"}, want: "unknown clip kind"},
		{name: "missing duration", args: []string{"arrange", "--clip", "source"}, want: "duration required"},
		{name: "bad option", args: []string{"arrange", "--clip", "source:2s:speed=2"}, want: "unknown clip option"},
		{name: "bad move", args: []string{"arrange", "--clip", "source:2s", "--move", "0"}, want: "expected from:to"},
		{name: "bad effect kind", args: []string{"arrange", "--clip", "source:2s", "--effect", "0:audio+video"}, want: "video or audio"},
		{name: "missing clip", args: []string{"arrange", "--clip", "source:2s", "--split", "3@1s"}, want: "no clip at index 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tc.want)
		})
	}
}

func TestInspectShowsTracksAndChildren(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"inspect",
		"--clip", "source:4s",
		"--clip", "transition:1s:wipe=7",
		"--clip", "source:4s",
		"--effect", "0:video",
		"--children",
	}, configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Video track (video/x-raw): 4 objects, duration 0:00:07.000000000")
	requireContains(t, out, "Audio track (audio/x-raw): 3 objects")
	requireContains(t, out, "operation")
	requireContains(t, out, "GstVideoBalance::contrast")
	requireContains(t, out, "GstSMPTEAlpha::type")
	requireContains(t, out, "construct")
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Tracks: video=yes audio=yes")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[timeline]\nlayer_height = -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"arrange", "--clip", "source:1s"}, path); err == nil {
		t.Fatal("expected invalid config to fail")
	}
}
