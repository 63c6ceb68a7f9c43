package signals

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemantic(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite clamps to zero", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "scaled", a: []float32{1, 1}, b: []float32{3, 3}, want: 1},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, want: 0},
		{name: "absent embedding", a: nil, b: []float32{1, 2, 3}, want: 0},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Semantic(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSemantic_SymmetricAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for j := range a {
			a[j] = float32(rng.NormFloat64())
			b[j] = float32(rng.NormFloat64())
		}
		ab, ba := Semantic(a, b), Semantic(b, a)
		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestCosine_Negative(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-9)
}

func TestKeyword(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		check   func(t *testing.T, got float64)
	}{
		{
			name:    "identical texts",
			query:   "refund policy",
			content: "Refund policy",
			check:   func(t *testing.T, got float64) { assert.InDelta(t, 1.0, got, 1e-9) },
		},
		{
			name:    "no shared terms",
			query:   "xyzzy nonsense",
			content: "Quarterly revenue grew in the northern region.",
			check:   func(t *testing.T, got float64) { assert.Zero(t, got) },
		},
		{
			name:    "only stopwords",
			query:   "the and of",
			content: "is it the",
			check:   func(t *testing.T, got float64) { assert.Zero(t, got) },
		},
		{
			name:    "punctuation only",
			query:   "?!",
			content: "...",
			check:   func(t *testing.T, got float64) { assert.Zero(t, got) },
		},
		{
			name:    "empty query",
			query:   "",
			content: "refund policy",
			check:   func(t *testing.T, got float64) { assert.Zero(t, got) },
		},
		{
			name:    "partial overlap",
			query:   "refund policy",
			content: "Customers may request a refund within thirty days of purchase.",
			check: func(t *testing.T, got float64) {
				assert.Greater(t, got, 0.0)
				assert.Less(t, got, 1.0)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Keyword(tt.query, tt.content))
		})
	}
}

func TestKeyword_SmoothedIDF(t *testing.T) {
	// query terms {refund}, content terms {refund, window}.
	// idf(refund) = 1, idf(window) = ln(3/2)+1.
	w := math.Log(1.5) + 1
	want := 1 / math.Sqrt(1+w*w)
	assert.InDelta(t, want, Keyword("refund", "refund window"), 1e-9)
}

func TestFuzzy(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"substring ignores case", "Refund Policy", "Our refund policy is simple.", 1},
		{"word overlap", "refund exceptions", "refund requests are reviewed", 0.5},
		{"duplicate query words count once", "refund refund", "no refund today", 1},
		{"no overlap", "xyzzy nonsense", "budget report", 0},
		{"empty query", "", "content", 0},
		{"blank content", "query", "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Fuzzy(tt.query, tt.content), 1e-9)
		})
	}
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5008_refund_policy.pdf", "refund policy"},
		{"2024-01-15 Board-Minutes.DOCX", "board minutes"},
		{"Employee_Handbook_v2.txt", "employee handbook v2"},
		{"archive.tar", "archive.tar"},
		{"reports/q3_summary.xlsx", "q3 summary"},
		{"12345.pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFilename(tt.in))
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		filename string
		want     float64
	}{
		{"exact after normalization", "refund policy", "5008_refund_policy.pdf", 1},
		{"query inside name", "handbook", "employee_handbook.pdf", 0.9},
		{"name inside query", "show me the travel policy please", "travel-policy.docx", 0.9},
		{"partial overlap is boosted", "travel expense rules", "expense_rules_2023.pdf", 2.0 / 3.0 * 1.3},
		{"boost is capped", "refund process steps", "refund_steps_process.pdf", 1},
		{"stopwords ignored", "the document", "policy_document.pdf", 0},
		{"no overlap", "xyzzy nonsense", "budget.xlsx", 0},
		{"empty query", "", "budget.xlsx", 0},
		{"empty filename", "budget", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.query, tt.filename)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}
