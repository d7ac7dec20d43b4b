package operator

import (
	"io"

	"github.com/fuersten/csvsqldb-sub001/block"
)

// Union implements spec.md §4.8: reads the left input to exhaustion,
// then the second. No deduplication is performed even for UNION
// DISTINCT syntax (spec.md's documented limitation). Schema identity
// between the two inputs is enforced by the validator, not here.
type Union struct {
	left, right RowOperator
	onLeft      bool
	columns     []ColumnInfo
}

func NewUnion(left, right RowOperator) *Union {
	return &Union{left: left, right: right, onLeft: true, columns: left.ColumnInfos()}
}

func (u *Union) ColumnInfos() []ColumnInfo { return u.columns }

func (u *Union) NextRow() (block.Row, bool, error) {
	if u.onLeft {
		row, ok, err := u.left.NextRow()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return row, true, nil
		}
		u.onLeft = false
	}
	return u.right.NextRow()
}

func (u *Union) Close() error { return closeAll(u.left, u.right) }

func (u *Union) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, "Union")
	dumpChild(w, prefix, u.left)
	dumpChild(w, prefix, u.right)
}
