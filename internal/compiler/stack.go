// Package compiler turns CUE stack documents into task stacks.
package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/reference"
)

//go:embed schema.cue
var schemaSource string

// Compiled is the result of compiling one stack document.
type Compiled struct {
	Stack    ir.TaskStack
	Settings ir.SolverSettings
}

// CompileStack unifies a CUE document with #StackFile and converts it to IR.
// The document must have a top-level "stack" list; "solver" is optional.
//
// CompileStack checks structure only. Dimension and value rules are left to
// Validate so that every defect can be reported at once.
func CompileStack(v cue.Value) (*Compiled, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#StackFile")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	out := &Compiled{}

	solverVal := unified.LookupPath(cue.ParsePath("solver"))
	if solverVal.Exists() {
		if err := solverVal.Decode(&out.Settings); err != nil {
			return nil, &CompileError{Field: "solver", Message: err.Error(), Pos: solverVal.Pos()}
		}
	}

	stackVal := unified.LookupPath(cue.ParsePath("stack"))
	if !stackVal.Exists() {
		return nil, &CompileError{Field: "stack", Message: "stack is required", Pos: v.Pos()}
	}
	iter, err := stackVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		task, err := compileTask(iter.Value(), fmt.Sprintf("stack[%d]", i))
		if err != nil {
			return nil, err
		}
		out.Stack.Tasks = append(out.Stack.Tasks, task)
	}
	return out, nil
}

func compileTask(v cue.Value, path string) (ir.Task, error) {
	var task ir.Task
	var err error

	if name := v.LookupPath(cue.ParsePath("name")); name.Exists() {
		if task.Name, err = name.String(); err != nil {
			return task, fieldError(name, path+".name", err)
		}
	}
	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return task, fieldError(v, path+".kind", err)
	}
	task.Kind = ir.TaskKind(kind)

	jac := v.LookupPath(cue.ParsePath("jacobian"))
	if task.Jacobian, err = matrix(jac, path+".jacobian"); err != nil {
		return task, err
	}
	if w := v.LookupPath(cue.ParsePath("weight")); w.Exists() {
		if task.Weight, err = matrix(w, path+".weight"); err != nil {
			return task, err
		}
	}

	var mask reference.Mask
	if mv := v.LookupPath(cue.ParsePath("mask")); mv.Exists() {
		if mask, err = boolList(mv, path+".mask"); err != nil {
			return task, err
		}
	}

	if pd := v.LookupPath(cue.ParsePath("pd")); pd.Exists() {
		return compilePD(v, pd, task, mask, path)
	}

	if ref := v.LookupPath(cue.ParsePath("reference")); ref.Exists() {
		if task.Reference, err = floatList(ref, path+".reference"); err != nil {
			return task, err
		}
	}
	for _, side := range []struct {
		field string
		dst   *ir.Bounds
	}{
		{"lower", &task.Lower},
		{"upper", &task.Upper},
	} {
		bv := v.LookupPath(cue.ParsePath(side.field))
		if !bv.Exists() {
			continue
		}
		if *side.dst, err = boundList(bv, path+"."+side.field); err != nil {
			return task, err
		}
	}

	if mask == nil {
		return task, nil
	}
	return applyMask(v, task, mask, path)
}

// applyMask keeps the selected rows of every row-indexed field.
// Fields whose length does not match the Jacobian are left for Validate.
func applyMask(v cue.Value, task ir.Task, mask reference.Mask, path string) (ir.Task, error) {
	m := task.Rows()
	if err := mask.Check(m); err != nil {
		return task, &CompileError{Field: path + ".mask", Message: err.Error(), Pos: v.Pos()}
	}
	fits := func(n int) bool { return n == m }

	task.Jacobian = mask.Rows(task.Jacobian)
	if task.Reference != nil && fits(len(task.Reference)) {
		task.Reference = mask.Vector(task.Reference)
	}
	if task.Lower.Present() && fits(len(task.Lower)) {
		task.Lower = ir.Bounds(mask.Vector(task.Lower))
	}
	if task.Upper.Present() && fits(len(task.Upper)) {
		task.Upper = ir.Bounds(mask.Vector(task.Upper))
	}
	if task.Weight != nil && fits(len(task.Weight)) {
		task.Weight = mask.Square(task.Weight)
	}
	return task, nil
}

func compilePD(v, pd cue.Value, task ir.Task, mask reference.Mask, path string) (ir.Task, error) {
	pdPath := path + ".pd"
	if task.Kind != ir.KindEquality {
		return task, &CompileError{Field: pdPath, Message: "pd reference requires an equality task", Pos: pd.Pos()}
	}
	for _, f := range []string{"reference", "lower", "upper"} {
		if v.LookupPath(cue.ParsePath(f)).Exists() {
			return task, &CompileError{Field: path + "." + f, Message: "cannot be combined with pd", Pos: v.Pos()}
		}
	}

	p := reference.PDTask{
		Name:     task.Name,
		Jacobian: task.Jacobian,
		Weight:   task.Weight,
		Mask:     mask,
	}
	var err error
	if p.Gains.Kp, err = pd.LookupPath(cue.ParsePath("kp")).Float64(); err != nil {
		return task, fieldError(pd, pdPath+".kp", err)
	}
	if kv := pd.LookupPath(cue.ParsePath("kv")); kv.Exists() {
		if p.Gains.Kv, err = kv.Float64(); err != nil {
			return task, fieldError(kv, pdPath+".kv", err)
		}
	}
	if ed := pd.LookupPath(cue.ParsePath("exp_decay")); ed.Exists() {
		if p.ExpDecay, err = ed.Bool(); err != nil {
			return task, fieldError(ed, pdPath+".exp_decay", err)
		}
	}

	for _, vec := range []struct {
		field    string
		dst      *[]float64
		required bool
	}{
		{"error", &p.PositionError, true},
		{"velocity_error", &p.VelocityError, false},
		{"drift", &p.Drift, false},
		{"feedforward", &p.FeedForward, false},
	} {
		fv := pd.LookupPath(cue.ParsePath(vec.field))
		if !fv.Exists() {
			if vec.required {
				return task, &CompileError{Field: pdPath + "." + vec.field, Message: "field is required", Pos: pd.Pos()}
			}
			continue
		}
		if *vec.dst, err = floatList(fv, pdPath+"."+vec.field); err != nil {
			return task, err
		}
	}

	if av := pd.LookupPath(cue.ParsePath("adaptive")); av.Exists() {
		var a reference.AdaptiveParams
		for _, f := range []struct {
			field string
			dst   *float64
		}{
			{"kmin", &a.KMin},
			{"kmax", &a.KMax},
			{"beta", &a.Beta},
		} {
			fv := av.LookupPath(cue.ParsePath(f.field))
			if *f.dst, err = fv.Float64(); err != nil {
				return task, fieldError(av, pdPath+".adaptive."+f.field, err)
			}
		}
		p.Adaptive = &a
	}

	out, err := p.Task()
	if err != nil {
		return task, &CompileError{Field: pdPath, Message: err.Error(), Pos: pd.Pos()}
	}
	return out, nil
}

func floatList(v cue.Value, field string) ([]float64, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(v, field, err)
	}
	out := []float64{}
	for i := 0; iter.Next(); i++ {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, fieldError(iter.Value(), fmt.Sprintf("%s[%d]", field, i), err)
		}
		out = append(out, f)
	}
	return out, nil
}

func matrix(v cue.Value, field string) ([][]float64, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(v, field, err)
	}
	var out [][]float64
	for i := 0; iter.Next(); i++ {
		row, err := floatList(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func boundList(v cue.Value, field string) (ir.Bounds, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(v, field, err)
	}
	out := ir.Bounds{}
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		name := fmt.Sprintf("%s[%d]", field, i)
		if elem.Kind() == cue.StringKind {
			s, _ := elem.String()
			b, err := ir.ParseBound(s)
			if err != nil {
				return nil, fieldError(elem, name, err)
			}
			out = append(out, b)
			continue
		}
		f, err := elem.Float64()
		if err != nil {
			return nil, fieldError(elem, name, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func boolList(v cue.Value, field string) (reference.Mask, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fieldError(v, field, err)
	}
	out := reference.Mask{}
	for i := 0; iter.Next(); i++ {
		b, err := iter.Value().Bool()
		if err != nil {
			return nil, fieldError(iter.Value(), fmt.Sprintf("%s[%d]", field, i), err)
		}
		out = append(out, b)
	}
	return out, nil
}

func fieldError(v cue.Value, field string, err error) *CompileError {
	return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
