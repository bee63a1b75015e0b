package cache_test

import (
	"testing"

	"github.com/goliatone/go-memocache/cache"
	"github.com/goliatone/go-memocache/pkg/testsupport"
)

// signatureScenario represents a test scenario loaded from fixtures
type signatureScenario struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Cases       []signatureCase `json:"cases"`
}

type signatureCase struct {
	Callable          string         `json:"callable"`
	Args              []any          `json:"args"`
	Kwargs            map[string]any `json:"kwargs"`
	ExpectedSignature string         `json:"expectedSignature"`
}

type signatureFixtures struct {
	Scenarios []signatureScenario `json:"scenarios"`
}

func TestDefaultSignature_Fixtures(t *testing.T) {
	var fixtures signatureFixtures
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("signature_scenarios.json"), &fixtures)

	if len(fixtures.Scenarios) == 0 {
		t.Fatal("no scenarios loaded from fixture")
	}

	serializer := cache.NewDefaultKeySerializer()

	for _, scenario := range fixtures.Scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			for _, tc := range scenario.Cases {
				got := cache.DefaultSignature(tc.Args, tc.Kwargs)
				if got != tc.ExpectedSignature {
					t.Errorf("DefaultSignature(%v, %v) = %q, want %q", tc.Args, tc.Kwargs, got, tc.ExpectedSignature)
				}

				key := serializer.SerializeKey(tc.Callable, got)
				if key != cache.Key(tc.Callable, tc.ExpectedSignature) {
					t.Errorf("SerializeKey(%q, %q) = %q, not derived from the expected signature", tc.Callable, got, key)
				}
			}
		})
	}
}
