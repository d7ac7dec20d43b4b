package validator

import (
	"testing"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/parser"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func testDatabase() *catalog.Database {
	db := catalog.NewDatabase()
	_ = db.CreateTable(&catalog.TableSchema{
		Name: "EMPLOYEES",
		Columns: []catalog.Column{
			{Name: "ID", Type: value.TypeInt},
			{Name: "NAME", Type: value.TypeString},
			{Name: "DEPT", Type: value.TypeString},
		},
	})
	_ = db.CreateTable(&catalog.TableSchema{
		Name: "DEPARTMENTS",
		Columns: []catalog.Column{
			{Name: "DEPT", Type: value.TypeString},
			{Name: "BUDGET", Type: value.TypeReal},
		},
	})
	return db
}

func mustParse(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return stmt
}

func TestValidateSimpleSelectPasses(t *testing.T) {
	db := testDatabase()
	cols, err := Validate(db, mustParse(t, `SELECT id, name FROM employees WHERE id > 0`))
	require.NoError(t, err)
	require.Len(t, cols, 2)
}

func TestValidateNonBooleanWhereIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT id FROM employees WHERE id`))
	require.Error(t, err)
}

func TestValidateHavingIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT dept, COUNT(*) FROM employees GROUP BY dept HAVING COUNT(*) > 1`))
	require.Error(t, err)
}

func TestValidateHavingInsideFromSubqueryIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t,
		`SELECT * FROM (SELECT dept, COUNT(*) c FROM employees GROUP BY dept HAVING COUNT(*) > 1) x`))
	require.Error(t, err)
}

func TestValidateOuterJoinInsideFromSubqueryIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t,
		`SELECT * FROM (SELECT e.id FROM employees e LEFT JOIN departments d ON e.dept = d.dept) x`))
	require.Error(t, err)
}

func TestValidateOuterJoinIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT e.id FROM employees e LEFT JOIN departments d ON e.dept = d.dept`))
	require.Error(t, err)
}

func TestValidateNaturalJoinIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT e.id FROM employees e NATURAL JOIN departments d`))
	require.Error(t, err)
}

func TestValidateInnerJoinPasses(t *testing.T) {
	db := testDatabase()
	cols, err := Validate(db, mustParse(t, `SELECT e.id, d.budget FROM employees e INNER JOIN departments d ON e.dept = d.dept`))
	require.NoError(t, err)
	require.Len(t, cols, 2)
}

func TestValidateNonBooleanOnIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT e.id FROM employees e INNER JOIN departments d ON e.id`))
	require.Error(t, err)
}

func TestValidateUnionTypeMismatchIsRejected(t *testing.T) {
	db := testDatabase()
	_, err := Validate(db, mustParse(t, `SELECT id FROM employees UNION ALL (SELECT budget FROM departments)`))
	require.Error(t, err)
}

func TestValidateUnionMatchingSchemaPasses(t *testing.T) {
	db := testDatabase()
	cols, err := Validate(db, mustParse(t, `SELECT dept FROM employees UNION ALL (SELECT dept FROM departments)`))
	require.NoError(t, err)
	require.Len(t, cols, 1)
}

func TestValidateCreateTableHasNoOutputColumns(t *testing.T) {
	db := testDatabase()
	cols, err := Validate(db, mustParse(t, `CREATE TABLE widgets (id INT PRIMARY KEY)`))
	require.NoError(t, err)
	require.Nil(t, cols)
}
