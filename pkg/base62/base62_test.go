package base62

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want string
	}{
		{
			name: "zero encodes to single zero digit",
			n:    0,
			want: "0",
		},
		{
			name: "single digit",
			n:    61,
			want: "Z",
		},
		{
			name: "first two-digit value",
			n:    62,
			want: "10",
		},
		{
			name: "mixed digits",
			n:    125,
			want: "21",
		},
		{
			name: "large value",
			n:    math.MaxInt64,
			want: "aZl8N0y58M7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.n)

			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("negative input panics", func(t *testing.T) {
		assert.Panics(t, func() {
			Encode(-1)
		})
	})
}

func TestEncode_alphabetConfinement(t *testing.T) {
	for n := int64(0); n < 10000; n++ {
		code := Encode(n)

		for i := 0; i < len(code); i++ {
			assert.Contains(t, Alphabet, string(code[i]))
		}
	}
}

func TestEncode_injective(t *testing.T) {
	seen := make(map[string]int64)

	for n := int64(0); n < 100000; n++ {
		code := Encode(n)

		prev, ok := seen[code]
		require.Falsef(t, ok, "ids %d and %d encode to the same code %q", prev, n, code)
		seen[code] = n
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    int64
		wantErr bool
	}{
		{
			name:    "empty string",
			s:       "",
			wantErr: true,
		},
		{
			name:    "character outside alphabet",
			s:       "abc-1",
			wantErr: true,
		},
		{
			name:    "overflows int64",
			s:       strings.Repeat("Z", 12),
			wantErr: true,
		},
		{
			name: "zero digit",
			s:    "0",
			want: 0,
		},
		{
			name: "two digits",
			s:    "10",
			want: 62,
		},
		{
			name: "max int64",
			s:    "aZl8N0y58M7",
			want: math.MaxInt64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.s)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ids := []int64{0, 1, 9, 10, 61, 62, 63, 3843, 3844, 123456789, math.MaxInt64 - 1, math.MaxInt64}

	for _, n := range ids {
		got, err := Decode(Encode(n))

		require.NoError(t, err)
		assert.Equal(t, n, got)
	}

	for n := int64(0); n < 100000; n++ {
		got, err := Decode(Encode(n))

		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}
