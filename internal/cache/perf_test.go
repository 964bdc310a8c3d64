package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func fixedSize(n int64) func(string, string) int64 {
	return func(string, string) int64 { return n }
}

func TestPerfHitMissStats(t *testing.T) {
	stubClock(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	c := NewPerf[string](DefaultPerfOptions())
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	c.Set("git", "/usr/bin/git")
	if v, ok := c.Get("git"); !ok || v != "/usr/bin/git" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	// "git" + `"/usr/bin/git"`
	if stats.Bytes != int64(len("git")+len(`"/usr/bin/git"`)) {
		t.Fatalf("bytes = %d", stats.Bytes)
	}
}

func TestPerfExpiry(t *testing.T) {
	now := stubClock(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	c := NewPerf[string](PerfOptions{TTL: time.Minute})
	c.Set("k", "v")
	*now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	stats := c.Stats()
	if stats.Expirations != 1 || stats.Entries != 0 || stats.Bytes != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPerfEvictsLeastValuableFirst(t *testing.T) {
	now := stubClock(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	c := NewPerf[string](PerfOptions{MaxBytes: 100, FrequencyWeight: time.Second}).WithSizer(fixedSize(30))

	c.Set("old", "a")
	*now = now.Add(time.Millisecond)
	c.Set("popular", "b")
	*now = now.Add(time.Millisecond)
	c.Set("recent", "c")

	// popular earns 3s of credit, more than the recency gap to the others.
	for i := 0; i < 3; i++ {
		c.Get("popular")
	}
	*now = now.Add(time.Millisecond)

	// 120 bytes > 100; shrink to <= 70 keeps two entries.
	c.Set("newest", "d")

	if _, ok := c.Get("old"); ok {
		t.Fatal("old should have been evicted first")
	}
	if _, ok := c.Get("popular"); !ok {
		t.Fatal("frequently used entry was evicted")
	}
	stats := c.Stats()
	if stats.Bytes > 70 {
		t.Fatalf("bytes after eviction = %d, want <= 70", stats.Bytes)
	}
	if stats.Evictions != 2 {
		t.Fatalf("evictions = %d, want 2", stats.Evictions)
	}
}

func TestPerfGetOrCompute(t *testing.T) {
	c := NewPerf[string](DefaultPerfOptions())

	calls := 0
	compute := func() (string, error) {
		calls++
		return "value", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != "value" {
			t.Fatalf("GetOrCompute = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("bad", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("failed computation was cached")
	}
}

func TestPerfReplaceKeepsSizeAccurate(t *testing.T) {
	c := NewPerf[string](PerfOptions{})
	c.Set("k", "short")
	c.Set("k", "a much longer value")
	want := int64(len("k") + len(`"a much longer value"`))
	if got := c.Stats().Bytes; got != want {
		t.Fatalf("bytes = %d, want %d", got, want)
	}
	c.Delete("k")
	if got := c.Stats().Bytes; got != 0 {
		t.Fatalf("bytes after delete = %d", got)
	}
}

func TestPerfSizeBoundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxBytes := rapid.Int64Range(50, 500).Draw(t, "maxBytes")
		c := NewPerf[string](PerfOptions{MaxBytes: maxBytes})

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			key := fmt.Sprintf("k%d", rapid.IntRange(0, 20).Draw(t, "key"))
			val := rapid.StringN(0, 40, -1).Draw(t, "val")
			if rapid.Bool().Draw(t, "read") {
				c.Get(key)
				continue
			}
			c.Set(key, val)
		}

		stats := c.Stats()
		if stats.Bytes > maxBytes {
			t.Fatalf("bytes %d exceed max %d", stats.Bytes, maxBytes)
		}
		if stats.Bytes < 0 {
			t.Fatalf("negative size accounting %d", stats.Bytes)
		}
	})
}
