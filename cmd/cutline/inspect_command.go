package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cutline/internal/timeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var flags arrangeFlags
	var children bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the track objects an arrangement produces",
		Example: `  cutline inspect --clip source:4s --clip transition --clip source:4s --children
  cutline inspect --clip source:10s --effect 0:video --split 0@4s`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := flags.build(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.release()) }()

			out := cmd.OutOrStdout()
			for i, track := range a.timeline.Tracks() {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := printTrack(out, track, children); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&children, "children", false, "List child element properties of every object")
	return cmd
}

func printTrack(out io.Writer, track *timeline.Track, children bool) error {
	members := track.Members()
	fmt.Fprintf(out, "%s track (%s): %d objects, duration %s\n",
		titleCase(track.Kind().String()), track.Caps(), len(members), track.Duration())

	rows := make([][]string, 0, len(members))
	for _, obj := range members {
		rows = append(rows, []string{
			obj.String(),
			obj.Role().String(),
			obj.Start().String(),
			obj.InPoint().String(),
			obj.Duration().String(),
			strconv.FormatUint(uint64(obj.Priority()), 10),
			yesNo(obj.Active()),
			yesNo(obj.Locked()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Object", "Role", "Start", "In", "Duration", "Priority", "Active", "Locked"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))

	if !children {
		return nil
	}
	for _, obj := range members {
		if err := printChildProperties(out, obj); err != nil {
			return err
		}
	}
	return nil
}

func printChildProperties(out io.Writer, obj *timeline.TrackObject) error {
	props, err := obj.ListChildProperties()
	if err != nil {
		return fmt.Errorf("list child properties of %s: %w", obj, err)
	}
	if len(props) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(props))
	for _, prop := range props {
		value := "-"
		if prop.Spec.Readable {
			v, err := obj.ChildProperty(prop.Key())
			if err != nil {
				return fmt.Errorf("read %s: %w", prop.Key(), err)
			}
			value = fmt.Sprint(v)
		}
		rows = append(rows, []string{prop.Key(), value, paramFlags(prop)})
	}
	fmt.Fprintf(out, "%s\n", obj)
	fmt.Fprintln(out, renderTable([]string{"Property", "Value", "Flags"}, rows, nil))
	return nil
}

func paramFlags(prop timeline.ChildProperty) string {
	var flags []string
	if prop.Spec.Readable {
		flags = append(flags, "r")
	}
	if prop.Spec.Writable {
		flags = append(flags, "w")
	}
	if prop.Spec.Construct {
		flags = append(flags, "construct")
	}
	return strings.Join(flags, ",")
}
