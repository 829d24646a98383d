package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ossa/internal/analysis"
	"ossa/internal/lifetime"
	"ossa/internal/liveness"
	"ossa/internal/report"
	"ossa/internal/sil"
)

func newBoundaryCmd() *cobra.Command {
	var (
		value    string
		funcName string
	)
	cmd := &cobra.Command{
		Use:   "boundary FILE",
		Short: "Show the liveness and availability boundaries of a value",
		Long: `Boundary prints, without changing the module, the last users of a value,
the users its own lifetime-ending uses do not cover and the positions where
availability completion would end it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := readModule(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := sil.Validate(m); err != nil {
				return fmt.Errorf("invalid module: %w", err)
			}
			f, v, err := findValue(m, funcName, value)
			if err != nil {
				return err
			}
			r := describeBoundary(f, v)
			if err := report.WriteBoundary(cmd.OutOrStdout(), r, s.format); err != nil {
				return err
			}
			if r.Error != "" {
				return errors.New(r.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "value to inspect (e.g. %x)")
	cmd.Flags().StringVar(&funcName, "func", "", "function defining the value (default: the first that does)")
	_ = cmd.MarkFlagRequired("value") //nolint:errcheck
	return cmd
}

func findValue(m *sil.Module, funcName, name string) (*sil.Func, *sil.Value, error) {
	for _, f := range m.Funcs {
		if funcName != "" && f.Name != funcName {
			continue
		}
		if v := f.ValueByName(name); v != nil {
			return f, v, nil
		}
	}
	if funcName != "" {
		return nil, nil, fmt.Errorf("value %s not found in @%s", name, funcName)
	}
	return nil, nil, fmt.Errorf("value %s not found", name)
}

func position(i *sil.Instr) report.Position {
	p := report.Position{Instr: sil.FormatInstr(i)}
	if i.Block != nil {
		p.Block = i.Block.Name
	}
	return p
}

// describeBoundary computes the boundaries on the unmodified function.
// Inner borrow scopes are not completed first, so an incomplete inner scope
// shows up through its missing ends.
func describeBoundary(f *sil.Func, v *sil.Value) report.BoundaryReport {
	r := report.BoundaryReport{Func: f.Name, Value: v.Name}
	if !v.HasLifetime() {
		r.Error = fmt.Sprintf("%s has no lifetime to end", v.Name)
		return r
	}
	err := lifetime.Catch(func() {
		in := liveness.ComputeInterior(v, analysis.ComputeDominators(f), nil)
		l := in.Liveness()
		bd := l.ComputeBoundary()
		for _, u := range bd.LastUsers {
			r.LastUsers = append(r.LastUsers, position(u))
		}
		for _, b := range bd.BoundaryEdges {
			r.BoundaryEdges = append(r.BoundaryEdges, b.Name)
		}
		r.DeadDef = len(bd.DeadDefs) > 0

		lifetime.VisitUsersOutsideLinearLiveness(v, l, func(user *sil.Instr) {
			r.OutsideLinear = append(r.OutsideLinear, position(user))
		})

		lifetime.VisitAvailabilityBoundary(v, l, func(pos *sil.Instr, end lifetime.End) {
			p := position(pos)
			p.End = end.String()
			r.Availability = append(r.Availability, p)
		})
	})
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
