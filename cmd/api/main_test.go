package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepInterval(t *testing.T) {
	cases := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Nanosecond, time.Second},
		{time.Second, time.Second},
		{3 * time.Second, 1500 * time.Millisecond},
		{30 * time.Minute, 15 * time.Minute},
	}
	for _, tc := range cases {
		got := sweepInterval(tc.ttl)
		assert.Equal(t, tc.want, got, "ttl %s", tc.ttl)
		assert.NotPanics(t, func() { time.NewTicker(got).Stop() })
	}
}
