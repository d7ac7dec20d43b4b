// Package aggregate implements spec.md §4.6's aggregation functions:
// COUNT, SUM, AVG, MIN, MAX, ARBITRARY, and PASS_THROUGH, each driven
// by the same init/step/finalize/suppress lifecycle the grouping
// operator runs once per group (or once for the whole input, for an
// aggregate with no GROUP BY).
package aggregate

import (
	"fmt"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// Aggregate accumulates a stream of values into one result.
type Aggregate interface {
	// Init resets the aggregate to its empty-input state.
	Init()
	// Step folds v into the running accumulation.
	Step(v value.Value) error
	// Finalize returns the accumulated result.
	Finalize() (value.Value, error)
	// ToString renders the current accumulation, for EXPLAIN output.
	ToString() string
	// Suppress reports whether the consumer should drop this column
	// from its output row (only PASS_THROUGH ever returns true).
	Suppress() bool
}

// Count implements COUNT(x) and, with star set, COUNT(*).
type Count struct {
	star  bool
	count int64
}

func NewCount(star bool) *Count { return &Count{star: star} }

func (c *Count) Init() { c.count = 0 }

func (c *Count) Step(v value.Value) error {
	if c.star || !v.IsNull() {
		c.count++
	}
	return nil
}

// Finalize returns the typed null COUNT(x) yields over empty input, or
// zero for COUNT(*) (spec.md §4.6's asymmetric empty-input rule).
func (c *Count) Finalize() (value.Value, error) {
	if c.count == 0 && !c.star {
		return value.Null(value.TypeInt), nil
	}
	return value.NewInt(c.count), nil
}

func (c *Count) ToString() string { return fmt.Sprintf("COUNT=%d", c.count) }
func (c *Count) Suppress() bool   { return false }

// Sum implements SUM(x), defined only for numeric input.
type Sum struct {
	inputType value.Type
	acc       value.Value
	any       bool
}

func NewSum(inputType value.Type) (*Sum, error) {
	if !inputType.IsNumeric() {
		return nil, csverrors.ErrEvaluation.New(fmt.Sprintf("SUM requires a numeric argument, got %s", inputType))
	}
	s := &Sum{inputType: inputType}
	s.Init()
	return s, nil
}

func (s *Sum) Init() { s.acc = value.Null(s.inputType); s.any = false }

func (s *Sum) Step(v value.Value) error {
	if v.IsNull() {
		return nil
	}
	if !s.any {
		s.acc = v
		s.any = true
		return nil
	}
	sum, err := value.Add(s.acc, v)
	if err != nil {
		return err
	}
	s.acc = sum
	return nil
}

func (s *Sum) Finalize() (value.Value, error) { return s.acc, nil }
func (s *Sum) ToString() string               { return fmt.Sprintf("SUM=%s", s.acc.Format()) }
func (s *Sum) Suppress() bool                 { return false }

// Avg implements AVG(x), always producing a Real result.
type Avg struct {
	inputType value.Type
	sum       value.Value
	count     int64
}

func NewAvg(inputType value.Type) (*Avg, error) {
	if !inputType.IsNumeric() {
		return nil, csverrors.ErrEvaluation.New(fmt.Sprintf("AVG requires a numeric argument, got %s", inputType))
	}
	a := &Avg{inputType: inputType}
	a.Init()
	return a, nil
}

func (a *Avg) Init() { a.sum = value.NewReal(0); a.count = 0 }

func (a *Avg) Step(v value.Value) error {
	if v.IsNull() {
		return nil
	}
	real, err := value.Cast(v, value.TypeReal)
	if err != nil {
		return err
	}
	sum, err := value.Add(a.sum, real)
	if err != nil {
		return err
	}
	a.sum = sum
	a.count++
	return nil
}

func (a *Avg) Finalize() (value.Value, error) {
	if a.count == 0 {
		return value.Null(value.TypeReal), nil
	}
	return value.Div(a.sum, value.NewReal(float64(a.count)))
}

func (a *Avg) ToString() string { return fmt.Sprintf("AVG=%s/%d", a.sum.Format(), a.count) }
func (a *Avg) Suppress() bool   { return false }

// extremum implements MIN/MAX by sharing the same accumulation shape
// and choosing which side of Compare to keep.
type extremum struct {
	inputType value.Type
	acc       value.Value
	any       bool
	keepLeft  func(cmp int) bool
	name      string
}

func newExtremum(name string, inputType value.Type, keepLeft func(cmp int) bool) *extremum {
	e := &extremum{inputType: inputType, keepLeft: keepLeft, name: name}
	e.Init()
	return e
}

// NewMin returns a MIN(x) aggregate over inputType.
func NewMin(inputType value.Type) *extremum {
	return newExtremum("MIN", inputType, func(cmp int) bool { return cmp <= 0 })
}

// NewMax returns a MAX(x) aggregate over inputType.
func NewMax(inputType value.Type) *extremum {
	return newExtremum("MAX", inputType, func(cmp int) bool { return cmp >= 0 })
}

func (e *extremum) Init() { e.acc = value.Null(e.inputType); e.any = false }

func (e *extremum) Step(v value.Value) error {
	if v.IsNull() {
		return nil
	}
	if !e.any {
		e.acc = v
		e.any = true
		return nil
	}
	cmp, err := value.Compare(e.acc, v)
	if err != nil {
		return err
	}
	if !e.keepLeft(cmp) {
		e.acc = v
	}
	return nil
}

func (e *extremum) Finalize() (value.Value, error) { return e.acc, nil }
func (e *extremum) ToString() string               { return fmt.Sprintf("%s=%s", e.name, e.acc.Format()) }
func (e *extremum) Suppress() bool                 { return false }

// Arbitrary implements ARBITRARY(x): the first non-null value wins and
// every later Step is a no-op.
type Arbitrary struct {
	inputType value.Type
	acc       value.Value
	any       bool
}

func NewArbitrary(inputType value.Type) *Arbitrary {
	a := &Arbitrary{inputType: inputType}
	a.Init()
	return a
}

func (a *Arbitrary) Init() { a.acc = value.Null(a.inputType); a.any = false }

func (a *Arbitrary) Step(v value.Value) error {
	if a.any || v.IsNull() {
		return nil
	}
	a.acc = v
	a.any = true
	return nil
}

func (a *Arbitrary) Finalize() (value.Value, error) { return a.acc, nil }
func (a *Arbitrary) ToString() string               { return fmt.Sprintf("ARBITRARY=%s", a.acc.Format()) }
func (a *Arbitrary) Suppress() bool                 { return false }

// PassThrough implements PASS_THROUGH: it carries the first row's value
// straight through (used for a select-list expression that is itself a
// GROUP BY key, so it needs no real aggregation) and tells the consumer
// to drop the column entirely once suppressed.
type PassThrough struct {
	inputType  value.Type
	acc        value.Value
	any        bool
	suppressed bool
}

func NewPassThrough(inputType value.Type, suppressed bool) *PassThrough {
	p := &PassThrough{inputType: inputType, suppressed: suppressed}
	p.Init()
	return p
}

func (p *PassThrough) Init() { p.acc = value.Null(p.inputType); p.any = false }

func (p *PassThrough) Step(v value.Value) error {
	if p.any {
		return nil
	}
	p.acc = v
	p.any = true
	return nil
}

func (p *PassThrough) Finalize() (value.Value, error) { return p.acc, nil }
func (p *PassThrough) ToString() string               { return fmt.Sprintf("PASS_THROUGH=%s", p.acc.Format()) }
func (p *PassThrough) Suppress() bool                 { return p.suppressed }
