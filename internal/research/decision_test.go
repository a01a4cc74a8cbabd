package research

import (
	"strings"
	"testing"
)

func TestParseDecisionSingleTool(t *testing.T) {
	raw := `{"need_tool": true, "tool_name": "web_search", "tool_query": "latest Go release", "reasoning": "needs current info"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.NeedTool {
		t.Fatal("need_tool should be true")
	}
	calls := d.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Tool != "web_search" || calls[0].Query != "latest Go release" {
		t.Fatalf("unexpected call: %+v", calls[0])
	}
}

func TestParseDecisionMultiTool(t *testing.T) {
	raw := `{"need_tool": true, "tool_names": ["arxiv_search", "web_search"], "tool_queries": ["attention mechanisms", "transformer blog posts"], "reasoning": "combine sources"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	calls := d.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Tool != "arxiv_search" || calls[1].Tool != "web_search" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestParseDecisionNoTool(t *testing.T) {
	raw := `{"need_tool": false, "reasoning": "general knowledge"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.NeedTool {
		t.Fatal("need_tool should be false")
	}
}

func TestParseDecisionToleratesProseAndFences(t *testing.T) {
	raws := []string{
		"Here is my decision:\n```json\n{\"need_tool\": false, \"reasoning\": \"known\"}\n```\nDone.",
		"Sure! {\"need_tool\": false, \"reasoning\": \"known\"} hope that helps",
	}
	for _, raw := range raws {
		d, err := ParseDecision(raw)
		if err != nil {
			t.Errorf("parse %q: %v", raw, err)
			continue
		}
		if d.NeedTool {
			t.Errorf("parse %q: need_tool should be false", raw)
		}
	}
}

func TestParseDecisionRejects(t *testing.T) {
	raws := []string{
		"I think we should search the web.",
		`{"need_tool": true, "reasoning": "missing tool name"}`,
		`{"need_tool": true, "tool_name": "web_search", "reasoning": "missing query"}`,
		`{"need_tool": true, "tool_names": ["web_search"], "tool_queries": [], "reasoning": "query count mismatch"}`,
		`{"need_tool": true, "tool_name": "web_search", "tool_query":`,
	}
	for _, raw := range raws {
		if _, err := ParseDecision(raw); err == nil {
			t.Errorf("ParseDecision(%q) succeeded, want error", raw)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict(`{"sufficient": false, "missing_aspects": ["recent benchmarks"], "confidence": 0.4}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Sufficient {
		t.Fatal("sufficient should be false")
	}
	if len(v.MissingAspects) != 1 || v.MissingAspects[0] != "recent benchmarks" {
		t.Fatalf("unexpected missing aspects: %v", v.MissingAspects)
	}
	if v.Confidence != 0.4 {
		t.Fatalf("confidence = %v", v.Confidence)
	}
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	v, err := ParseVerdict(`{"sufficient": true, "confidence": 1.7}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", v.Confidence)
	}

	v, err = ParseVerdict(`{"sufficient": true, "confidence": -0.3}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Confidence != 0 {
		t.Fatalf("confidence = %v, want clamped to 0", v.Confidence)
	}
}

func TestParseVerdictRejectsNonJSON(t *testing.T) {
	if _, err := ParseVerdict("the evidence looks fine to me"); err == nil {
		t.Fatal("expected error for prose verdict")
	}
	if _, err := ParseVerdict(strings.Repeat("{", 3)); err == nil {
		t.Fatal("expected error for unterminated object")
	}
}

func TestExtractJSONNestedAndStrings(t *testing.T) {
	raw := `{"sufficient": true, "missing_aspects": ["a \"quoted\" brace }"], "confidence": 0.9}`
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !v.Sufficient || v.MissingAspects[0] != `a "quoted" brace }` {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}
