package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cutline/internal/timeline"
)

type clipReport struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Start      string `json:"start"`
	StartNS    uint64 `json:"start_ns"`
	InPoint    string `json:"in_point"`
	Duration   string `json:"duration"`
	DurationNS uint64 `json:"duration_ns"`
	End        string `json:"end"`
	Priority   uint32 `json:"priority"`
	Height     uint32 `json:"height"`
	Objects    int    `json:"objects"`
	Effects    int    `json:"effects"`
}

type arrangeReport struct {
	Valid       bool         `json:"valid"`
	Duration    string       `json:"duration"`
	DurationNS  uint64       `json:"duration_ns"`
	MaxPriority uint32       `json:"max_priority"`
	Clips       []clipReport `json:"clips"`
}

func newArrangeCommand(ctx *commandContext) *cobra.Command {
	var flags arrangeFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "arrange",
		Short: "Lay clips out back to back and report their placement",
		Example: `  cutline arrange --clip source:10s --clip transition:2s --clip source:8s
  cutline arrange --clip source:10s:in=2s,max=20s --clip generator:5s:pattern=1 --json`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := flags.build(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.release()) }()

			report := buildArrangeReport(a)
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			printArrangeReport(cmd, report)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func buildArrangeReport(a *arrangement) arrangeReport {
	duration := a.timeline.Duration()
	report := arrangeReport{
		Valid:       a.layer.Valid(),
		Duration:    duration.String(),
		DurationNS:  uint64(duration),
		MaxPriority: a.layer.MaxPriority(),
	}
	for i, clip := range a.layer.Clips() {
		report.Clips = append(report.Clips, reportClip(i, clip))
	}
	return report
}

func reportClip(index int, clip *timeline.Clip) clipReport {
	return clipReport{
		Index:      index,
		ID:         clip.ID(),
		Kind:       clip.Kind().String(),
		Start:      clip.Start().String(),
		StartNS:    uint64(clip.Start()),
		InPoint:    clip.InPoint().String(),
		Duration:   clip.Duration().String(),
		DurationNS: uint64(clip.Duration()),
		End:        clip.End().String(),
		Priority:   clip.Priority(),
		Height:     clip.Height(),
		Objects:    len(clip.TrackObjects()),
		Effects:    len(clip.TopEffects()),
	}
}

func printArrangeReport(cmd *cobra.Command, report arrangeReport) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Clips))
	for _, clip := range report.Clips {
		rows = append(rows, []string{
			strconv.Itoa(clip.Index),
			clip.Kind,
			clip.Start,
			clip.Duration,
			clip.End,
			strconv.FormatUint(uint64(clip.Priority), 10),
			strconv.FormatUint(uint64(clip.Height), 10),
			strconv.Itoa(clip.Objects),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Kind", "Start", "Duration", "End", "Priority", "Height", "Objects"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Layer valid: %s\n", yesNo(report.Valid))
	fmt.Fprintf(out, "Timeline duration: %s\n", report.Duration)
}
