package csvsource

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingCallback struct {
	rows    [][]string
	rejectN int
	calls   int
}

func (c *recordingCallback) OnRow(fields []string) error {
	c.calls++
	if c.rejectN > 0 && len(fields) != c.rejectN {
		return errInvalidShape
	}
	cp := append([]string(nil), fields...)
	c.rows = append(c.rows, cp)
	return nil
}

var errInvalidShape = &shapeError{}

type shapeError struct{}

func (*shapeError) Error() string { return "unexpected field count" }

func TestReadSkipsHeaderWhenConfigured(t *testing.T) {
	in := "ID,NAME\n1,Alice\n2,Bob\n"
	cb := &recordingCallback{}
	err := Read(context.Background(), strings.NewReader(in), Options{Delimiter: ',', SkipFirstLine: true}, cb, nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, cb.rows)
}

func TestReadWithoutSkipKeepsFirstLine(t *testing.T) {
	in := "1,Alice\n2,Bob\n"
	cb := &recordingCallback{}
	err := Read(context.Background(), strings.NewReader(in), Options{Delimiter: ','}, cb, nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, cb.rows)
}

func TestReadSkipsRowsRejectedByCallback(t *testing.T) {
	in := "1,Alice\n2\n3,Carol\n"
	cb := &recordingCallback{rejectN: 2}
	err := Read(context.Background(), strings.NewReader(in), Options{Delimiter: ','}, cb, nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1", "Alice"}, {"3", "Carol"}}, cb.rows)
}

func TestReadRespectsCustomDelimiter(t *testing.T) {
	in := "1;Alice\n2;Bob\n"
	cb := &recordingCallback{}
	err := Read(context.Background(), strings.NewReader(in), Options{Delimiter: ';'}, cb, nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, cb.rows)
}

func TestReadStopsOnCancellation(t *testing.T) {
	in := "1,Alice\n2,Bob\n3,Carol\n"
	cb := &recordingCallback{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Read(ctx, strings.NewReader(in), Options{Delimiter: ','}, cb, nil)
	require.ErrorIs(t, err, ErrCancelled)
}
