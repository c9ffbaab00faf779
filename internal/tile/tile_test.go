package tile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumeratePerZoom(t *testing.T) {
	const maxZoom = 6

	perZoom := make(map[uint32]int)
	seen := make(map[Address]bool)
	for a := range Enumerate(maxZoom) {
		require.Falsef(t, seen[a], "duplicate address %v", a)
		seen[a] = true

		n := uint32(1) << a.Z
		require.Less(t, a.X, n)
		require.Less(t, a.Y, n)
		perZoom[uint32(a.Z)]++
	}

	for z := uint32(0); z <= maxZoom; z++ {
		want := 1 << (2 * z)
		require.Equalf(t, want, perZoom[z], "zoom %d", z)
	}
	require.Len(t, seen, int(Count(maxZoom)))
}

func TestCount(t *testing.T) {
	tests := []struct {
		maxZoom int
		want    int64
	}{
		{0, 1},
		{1, 5},
		{2, 21},
		{6, 5461},
	}

	for _, tt := range tests {
		if got := Count(tt.maxZoom); got != tt.want {
			t.Errorf("Count(%d) = %d, want %d", tt.maxZoom, got, tt.want)
		}
	}
}

func TestEnumerateDeterministic(t *testing.T) {
	var first, second []Address
	for a := range Enumerate(3) {
		first = append(first, a)
	}
	for a := range Enumerate(3) {
		second = append(second, a)
	}
	require.Equal(t, first, second)
	require.Equal(t, New(0, 0, 0), first[0])
}

func TestEnumerateStopsEarly(t *testing.T) {
	n := 0
	for range Enumerate(4) {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}

func TestKeyRoundTrip(t *testing.T) {
	a := New(5, 17, 30)
	require.Equal(t, "5/17/30.png", Key(a))

	parsed, err := ParseKey(Key(a))
	require.NoError(t, err)
	require.Equal(t, a, parsed)
}

func TestParseKeyInvalid(t *testing.T) {
	for _, key := range []string{
		"",
		"1/2.png",
		"1/2/3.jpg",
		"a/b/c.png",
		"1/2/0.png", // x out of range for z=1
		"40/0/0.png",
	} {
		if _, err := ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q): expected error", key)
		}
	}
}

func TestURL(t *testing.T) {
	a := New(3, 4, 5)

	tests := []struct {
		template string
		want     string
	}{
		{"https://tiles.example.com/ne2sr", "https://tiles.example.com/ne2sr/3/4/5.png"},
		{"https://tiles.example.com/ne2sr/", "https://tiles.example.com/ne2sr/3/4/5.png"},
		{"https://tiles.example.com/{z}/{x}/{y}@2x.webp", "https://tiles.example.com/3/4/5@2x.webp"},
	}

	for _, tt := range tests {
		if got := URL(tt.template, a); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	ok := Fetched(42)
	require.Equal(t, StatusFetched, ok.Status)
	require.EqualValues(t, 42, ok.Bytes)
	require.Empty(t, ok.Reason())

	require.Equal(t, StatusPresent, AlreadyPresent().Status)

	failed := Failed(KindStatus, errors.New("unexpected status code: 503"))
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, KindStatus, failed.Kind)
	require.Equal(t, "unexpected status code: 503", failed.Reason())
	require.Equal(t, "failed", failed.Status.String())
}
