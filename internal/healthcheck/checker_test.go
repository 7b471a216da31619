package healthcheck

import (
	"context"
	"testing"
)

type testChecker struct {
	items []CheckResult
}

func (c *testChecker) ListChecks(ctx context.Context) []CheckResult {
	return c.items
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		checkers []Checker
		want     string
		count    int
	}{
		{name: "no checkers", want: StatusOK},
		{
			name:     "all ok",
			checkers: []Checker{&testChecker{items: []CheckResult{{ID: "a", Status: StatusOK}}}},
			want:     StatusOK,
			count:    1,
		},
		{
			name: "warn wins over ok",
			checkers: []Checker{
				&testChecker{items: []CheckResult{{ID: "a", Status: StatusOK}}},
				&testChecker{items: []CheckResult{{ID: "b", Status: StatusWarn}}},
			},
			want:  StatusWarn,
			count: 2,
		},
		{
			name: "error wins over warn",
			checkers: []Checker{
				&testChecker{items: []CheckResult{{ID: "a", Status: StatusError}, {ID: "b", Status: StatusWarn}}},
				nil,
			},
			want:  StatusError,
			count: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := Run(context.Background(), tc.checkers)
			if report.Status != tc.want {
				t.Fatalf("status=%q want %q", report.Status, tc.want)
			}
			if len(report.Checks) != tc.count {
				t.Fatalf("checks=%d want %d", len(report.Checks), tc.count)
			}
		})
	}
}
