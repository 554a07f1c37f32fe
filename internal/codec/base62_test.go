package codec

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want string
	}{
		{"zero", 0, "0"},
		{"single digit", 9, "9"},
		{"first lowercase", 10, "a"},
		{"last lowercase", 35, "z"},
		{"first uppercase", 36, "A"},
		{"last single char", 61, "Z"},
		{"two digits", 62, "10"},
		{"floor index", 100, "1C"},
		{"large", 3843, "ZZ"},
		{"max uint64", 18446744073709551615, "lYGhA16ahyf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.n); got != tt.want {
				t.Errorf("Encode(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    uint64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"floor index", "1C", 100, false},
		{"two digits", "10", 62, false},
		{"max uint64", "lYGhA16ahyf", 18446744073709551615, false},
		{"empty string", "", 0, true},
		{"space", " ", 0, true},
		{"dash", "abc-def", 0, true},
		{"unicode", "日本", 0, true},
		{"overflow", "lYGhA16ahyg", 0, true},
		{"way past overflow", "ZZZZZZZZZZZZZZ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.s)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Fatalf("Decode(%q) error = %v, want ErrInvalidIdentifier", tt.s, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.s, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %d, want %d", tt.s, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 61, 62, 63, 100, 101, 3844, 238327, 1 << 32, 1<<63 - 1}
	for _, n := range cases {
		s := Encode(n)
		got, err := Decode(s)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) error: %v", n, err)
		}
		if got != n {
			t.Errorf("Decode(Encode(%d)) = %d", n, got)
		}
	}
}

func TestEncodeMonotonicLength(t *testing.T) {
	// Identifiers for consecutive indices never shrink.
	prev := len(Encode(100))
	for n := uint64(101); n < 5000; n++ {
		l := len(Encode(n))
		if l < prev {
			t.Fatalf("Encode(%d) length %d shorter than previous %d", n, l, prev)
		}
		prev = l
	}
}
