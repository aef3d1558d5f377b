package tokenizer

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEncoder struct{}

func (fakeEncoder) Encode(text string, _, _ []string) []int {
	return make([]int, len(text))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCountUsesEncoder(t *testing.T) {
	t.Parallel()

	loads := 0
	c := newCounter(func() (encoder, error) {
		loads++
		return fakeEncoder{}, nil
	}, testLogger())

	require.Equal(t, 5, c.Count("hello"))
	require.Equal(t, 3, c.Count("abc"))
	require.Equal(t, 1, loads)
}

func TestCountFallsBackToEstimate(t *testing.T) {
	t.Parallel()

	c := newCounter(func() (encoder, error) {
		return nil, errors.New("offline")
	}, testLogger())

	require.Equal(t, Estimate("one two three"), c.Count("one two three"))
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Estimate(""))
	require.Equal(t, 4, Estimate("one two three"))
	require.Equal(t, 134, Estimate(strings.Repeat("w ", 100)))
}
