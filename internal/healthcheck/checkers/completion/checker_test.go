package completionchecker

import (
	"context"
	"errors"
	"testing"

	"github.com/memohai/mbot/internal/completion"
	"github.com/memohai/mbot/internal/healthcheck"
)

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	stored := func(items []completion.Credential, err error) completion.CredentialSource {
		return completion.CredentialSourceFunc(func(context.Context) ([]completion.Credential, error) {
			return items, err
		})
	}

	cases := []struct {
		name    string
		primary string
		source  completion.CredentialSource
		want    string
	}{
		{name: "primary only", primary: "key", want: healthcheck.StatusOK},
		{name: "stored only", source: stored([]completion.Credential{{Name: "b", APIKey: "k2"}}, nil), want: healthcheck.StatusOK},
		{name: "none", source: stored(nil, nil), want: healthcheck.StatusError},
		{name: "blank stored keys", source: stored([]completion.Credential{{Name: "b", APIKey: " "}}, nil), want: healthcheck.StatusError},
		{name: "store down with primary", primary: "key", source: stored(nil, errors.New("down")), want: healthcheck.StatusWarn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := NewChecker(nil, tc.primary, tc.source).ListChecks(context.Background())
			if len(items) != 1 {
				t.Fatalf("expected one item, got %d", len(items))
			}
			if items[0].Status != tc.want {
				t.Fatalf("status=%q want %q (%+v)", items[0].Status, tc.want, items[0])
			}
		})
	}
}
