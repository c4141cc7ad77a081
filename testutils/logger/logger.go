package logger

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

/*
New returns logger for test "t" which writes output through t.Log so it
is only shown when the test fails or -v flag is used.

Level is DEBUG.
*/
func New(t testing.TB) *zerolog.Logger {
	l := zerolog.New(zerolog.ConsoleWriter{
		Out:        testWriter{t: t},
		NoColor:    true,
		TimeFormat: "15:04:05.000",
	}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &l
}

// Discard returns logger which drops everything.
func Discard() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
