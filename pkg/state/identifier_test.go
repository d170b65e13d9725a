package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/state"
)

type identifierFixture struct {
	Description string           `json:"description"`
	Cases       []identifierCase `json:"cases"`
}

type identifierCase struct {
	Name   string        `json:"name"`
	Ref    identifierRef `json:"ref"`
	Expect expectValue   `json:"expect"`
}

type identifierRef struct {
	ObjectID string       `json:"object_id"`
	Scope    fixtureScope `json:"scope"`
}

type fixtureScope struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type expectValue struct {
	Value string `json:"value"`
	Err   string `json:"err"`
}

func TestRefIdentifier(t *testing.T) {
	fx := loadFixture[identifierFixture](t, "state_identifier.json")
	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			ref := state.Ref{
				ObjectID: tc.Ref.ObjectID,
				Scope:    props.Scope{Name: tc.Ref.Scope.Name, Priority: tc.Ref.Scope.Priority},
			}
			got, err := ref.Identifier()

			if tc.Expect.Err != "" {
				if err == nil {
					t.Fatalf("expected error %q but got nil", tc.Expect.Err)
				}
				if err.Error() != tc.Expect.Err {
					t.Fatalf("expected error %q, got %q", tc.Expect.Err, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.Expect.Value {
				t.Fatalf("expected %q, got %q", tc.Expect.Value, got)
			}
		})
	}
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	fixturePath := filepath.Join("testdata", name)
	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", fixturePath, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", fixturePath, err)
	}
	return out
}
