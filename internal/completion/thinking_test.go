package completion

import "testing"

func intPtr(v int) *int { return &v }

func TestThinkingBudget(t *testing.T) {
	t.Parallel()

	p := DefaultThinkingPolicy()
	tests := []struct {
		name       string
		model      string
		prior      int
		configured *int
		want       *int32
	}{
		{name: "first turn idle flash", model: "gemini-2.5-flash", prior: 0, configured: intPtr(4096), want: i32(0)},
		{name: "first turn idle pro", model: "gemini-2.5-pro", prior: 0, want: i32(128)},
		{name: "unset is auto", model: "gemini-2.5-flash", prior: 2, want: i32(-1)},
		{name: "negative is auto", model: "gemini-2.5-flash", prior: 2, configured: intPtr(-7), want: i32(-1)},
		{name: "in range kept", model: "gemini-2.5-flash", prior: 2, configured: intPtr(2048), want: i32(2048)},
		{name: "clamped high", model: "gemini-2.5-flash", prior: 2, configured: intPtr(1_000_000), want: i32(24576)},
		{name: "clamped low", model: "gemini-2.5-flash-lite", prior: 2, configured: intPtr(10), want: i32(512)},
		{name: "zero disables when allowed", model: "gemini-2.5-flash-lite", prior: 2, configured: intPtr(0), want: i32(0)},
		{name: "zero clamped when not allowed", model: "gemini-2.5-pro", prior: 2, configured: intPtr(0), want: i32(128)},
		{name: "versioned name", model: "gemini-2.5-flash-preview-05-20", prior: 2, configured: intPtr(99999), want: i32(24576)},
		{name: "lite not confused with flash", model: "gemini-2.5-flash-lite-preview", prior: 2, configured: intPtr(10), want: i32(512)},
		{name: "model without thinking", model: "gemini-2.0-flash", prior: 2, configured: intPtr(1024), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Budget(tt.model, tt.prior, tt.configured)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("expected no budget, got %d", *got)
			case tt.want != nil && got == nil:
				t.Fatalf("expected %d, got nil", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("expected %d, got %d", *tt.want, *got)
			}
		})
	}
}

func i32(v int32) *int32 { return &v }
