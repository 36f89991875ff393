package dedup

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestShouldProcess(t *testing.T) {
	is := is.New(t)
	d := New(time.Minute, 10)
	now := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	is.True(d.ShouldProcess("rpc_ok|a"))
	is.True(!d.ShouldProcess("rpc_ok|a")) // redelivery
	is.True(d.ShouldProcess("rpc_ok|b"))
	is.True(d.ShouldProcess(""))
	is.True(d.ShouldProcess(""))

	now = now.Add(2 * time.Minute)
	is.True(d.ShouldProcess("rpc_ok|a")) // expired
}

func TestBounded(t *testing.T) {
	is := is.New(t)
	d := New(time.Hour, 3)
	base := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	step := 0
	d.now = func() time.Time { step++; return base.Add(time.Duration(step) * time.Second) }

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		is.True(d.ShouldProcess(id))
	}
	is.Equal(d.Len(), 3)
	is.True(d.ShouldProcess("a")) // evicted as the oldest
}
