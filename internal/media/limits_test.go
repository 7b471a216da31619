package media

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  []byte
		maxBytes int64
		wantErr  error
	}{
		{name: "within limit", payload: []byte("hello"), maxBytes: 8},
		{name: "exact limit", payload: []byte("12345"), maxBytes: 5},
		{name: "over limit", payload: []byte("0123456789"), maxBytes: 5, wantErr: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadAllWithLimit(bytes.NewReader(tt.payload), tt.maxBytes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Fatalf("unexpected payload: %q", got)
			}
		})
	}

	if _, err := ReadAllWithLimit(nil, 1); err == nil {
		t.Fatal("expected error for nil reader")
	}
	if _, err := ReadAllWithLimit(bytes.NewReader(nil), 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}
