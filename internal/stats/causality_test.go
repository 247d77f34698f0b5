package stats

import (
	"math"
	"testing"

	"github.com/miradorstack/mirador-explain/internal/models"
)

func TestCausalRelationshipsBothDirections(t *testing.T) {
	a := newTestAnalyzer()
	logs := linearLogs(30, func(i int) float64 { return float64(i%2) * 0.5 })

	relationships := a.CausalRelationships(logs, []string{"a", "b"})
	// Two directions, three proxy methods each.
	if len(relationships) != 6 {
		t.Fatalf("expected 6 relationships, got %d", len(relationships))
	}

	byMethod := make(map[models.CausalMethod]models.CausalRelationship)
	for _, r := range relationships {
		if r.Cause == "a" && r.Effect == "b" {
			byMethod[r.Method] = r
		}
		if r.Strength < 0 {
			t.Fatalf("strength must be non-negative, got %f for %s", r.Strength, r.Method)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Fatalf("confidence out of range: %f", r.Confidence)
		}
	}

	granger, ok := byMethod[models.CausalGranger]
	if !ok {
		t.Fatal("missing granger proxy")
	}
	if granger.Strength < 0.9 || granger.Strength > 1 {
		t.Fatalf("granger strength should track |correlation|, got %f", granger.Strength)
	}

	mi := byMethod[models.CausalMutualInfo]
	te := byMethod[models.CausalTransferEntropy]
	if math.Abs(te.Strength-0.8*mi.Strength) > 1e-9 {
		t.Fatalf("transfer entropy proxy must be 0.8x mutual information: %f vs %f", te.Strength, mi.Strength)
	}
}

func TestCausalRelationshipsInsufficientSamples(t *testing.T) {
	a := newTestAnalyzer()
	logs := linearLogs(5, func(i int) float64 { return 0 })
	if rels := a.CausalRelationships(logs, []string{"a", "b"}); len(rels) != 0 {
		t.Fatalf("below-minimum samples must yield nothing, got %d", len(rels))
	}
}

func TestMutualInformationProxy(t *testing.T) {
	if mi := mutualInformationProxy(0); mi != 0 {
		t.Fatalf("independent fields carry zero information, got %f", mi)
	}
	if mi := mutualInformationProxy(1); mi != 10 {
		t.Fatalf("perfect correlation must hit the cap, got %f", mi)
	}
	weak := mutualInformationProxy(0.3)
	strong := mutualInformationProxy(0.9)
	if weak >= strong {
		t.Fatalf("information must grow with |r|: %f vs %f", weak, strong)
	}
}
