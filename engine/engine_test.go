package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/config"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func employeesSchema() *catalog.TableSchema {
	return &catalog.TableSchema{
		Name: "EMPLOYEES",
		Columns: []catalog.Column{
			{Name: "ID", Type: value.TypeInt},
			{Name: "FIRST_NAME", Type: value.TypeString},
			{Name: "LAST_NAME", Type: value.TypeString},
			{Name: "BIRTH_DATE", Type: value.TypeDate},
			{Name: "HIRE_DATE", Type: value.TypeDate},
		},
	}
}

func salariesSchema() *catalog.TableSchema {
	return &catalog.TableSchema{
		Name: "SALARIES",
		Columns: []catalog.Column{
			{Name: "ID", Type: value.TypeInt},
			{Name: "SALARY", Type: value.TypeReal},
			{Name: "FROM_DATE", Type: value.TypeDate},
			{Name: "TO_DATE", Type: value.TypeDate},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	db := catalog.NewDatabase()
	require.NoError(t, db.CreateTable(employeesSchema()))
	require.NoError(t, db.CreateTable(salariesSchema()))
	require.NoError(t, db.CreateMapping(&catalog.FileMapping{
		Table: "EMPLOYEES", Pattern: `^employees\.csv$`, Delimiter: ",",
	}))
	require.NoError(t, db.CreateMapping(&catalog.FileMapping{
		Table: "SALARIES", Pattern: `^salaries\.csv$`, Delimiter: ",",
	}))

	employees := "815,Mark,Fürstenberg,1969-05-17,2003-04-15\n" +
		"4711,Lars,Fürstenberg,1970-09-23,2010-02-01\n" +
		"9227,Angelica,Tello de Fürstenberg,1963-03-06,2003-06-15\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees.csv"), []byte(employees), 0o644))

	salaries := "815,5000.0,2003-04-15,2999-12-31\n" +
		"4711,12000.0,2010-02-01,2999-12-31\n" +
		"9227,450.0,2003-06-15,2999-12-31\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "salaries.csv"), []byte(salaries), 0o644))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	opts := config.DefaultEngineOptions()
	return New(db, dir, opts, log), dir
}

func testContext() *Context {
	return NewContext(context.Background(), nil)
}

func TestExecuteFilterAndProjection(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT id,(first_name || ' ' || last_name) as name,birth_date birthday, 7 * 5 / 4 as calc FROM employees emp WHERE id BETWEEN 100 AND 9999 AND emp.birth_date > DATE'1960-01-01'`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, "#ID,NAME,BIRTHDAY,CALC\n"+
		"815,'Mark Fürstenberg',1969-05-17,8\n"+
		"4711,'Lars Fürstenberg',1970-09-23,8\n"+
		"9227,'Angelica Tello de Fürstenberg',1963-03-06,8\n", buf.String())
}

func TestExecuteGroupByWithAggregates(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT count(id) as count,last_name,max(birth_date) as "max birthdate",min(hire_date) as "min hire" FROM employees group by last_name order by last_name`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, "#COUNT,LAST_NAME,MAX BIRTHDATE,MIN HIRE\n"+
		"2,'Fürstenberg',1970-09-23,2003-04-15\n"+
		"1,'Tello de Fürstenberg',1963-03-06,2003-06-15\n", buf.String())
}

func TestExecuteInnerHashJoin(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT * FROM employees emp INNER JOIN salaries sal ON emp.id = sal.id`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestExecuteUnion(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT * FROM employees WHERE id < 4700 UNION (SELECT * FROM employees WHERE id >= 4700)`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestExecuteLimitWithOffset(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT id FROM employees order by id limit 2 offset 1`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, "#ID\n4711\n9227\n", buf.String())
}

func TestExecuteSystemDual(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	n, err := e.Execute(testContext(), `SELECT 3+4 FROM SYSTEM_DUAL`, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Contains(t, buf.String(), "7\n")
}

func TestExecuteCreateAndDropTable(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := testContext()
	var buf bytes.Buffer

	_, err := e.Execute(ctx, `CREATE TABLE departments (id INT, name STRING)`, &buf)
	require.NoError(t, err)
	_, ok := e.Database().Table("DEPARTMENTS")
	require.True(t, ok)

	_, err = e.Execute(ctx, `CREATE TABLE departments (id INT, name STRING)`, &buf)
	require.Error(t, err)

	_, err = e.Execute(ctx, `CREATE TABLE IF NOT EXISTS departments (id INT, name STRING)`, &buf)
	require.NoError(t, err)

	_, err = e.Execute(ctx, `DROP TABLE departments`, &buf)
	require.NoError(t, err)
	_, ok = e.Database().Table("DEPARTMENTS")
	require.False(t, ok)

	_, err = e.Execute(ctx, `DROP TABLE IF EXISTS departments`, &buf)
	require.NoError(t, err)
}

func TestExecuteExplainAST(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	_, err := e.Execute(testContext(), `EXPLAIN AST SELECT id FROM employees WHERE id > 1`, &buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "QuerySpecification")
	require.Contains(t, buf.String(), "Table EMPLOYEES")
}

func TestExecuteExplainExec(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	_, err := e.Execute(testContext(), `EXPLAIN EXEC SELECT id FROM employees WHERE id > 1`, &buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Scan")
	require.Contains(t, buf.String(), "Select")
}

func TestExecuteRejectsMalformedSQL(t *testing.T) {
	e, _ := newTestEngine(t)
	var buf bytes.Buffer
	_, err := e.Execute(testContext(), `SELECT FROM`, &buf)
	require.Error(t, err)
}
