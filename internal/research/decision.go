package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decision is the model's answer to "do we need a tool, and which one".
// Single-tool decisions fill ToolName and ToolQuery; the model may instead
// return parallel ToolNames and ToolQueries arrays to request several tools
// in one pass.
type Decision struct {
	NeedTool    bool     `json:"need_tool"`
	ToolName    string   `json:"tool_name"`
	ToolQuery   string   `json:"tool_query"`
	ToolNames   []string `json:"tool_names"`
	ToolQueries []string `json:"tool_queries"`
	Reasoning   string   `json:"reasoning"`
}

// Call is one concrete tool invocation extracted from a decision.
type Call struct {
	Tool  string
	Query string
}

// Calls normalizes a decision into the list of requested invocations.
func (d Decision) Calls() []Call {
	if len(d.ToolNames) > 0 {
		calls := make([]Call, 0, len(d.ToolNames))
		for i, name := range d.ToolNames {
			var query string
			if i < len(d.ToolQueries) {
				query = d.ToolQueries[i]
			}
			calls = append(calls, Call{Tool: strings.TrimSpace(name), Query: strings.TrimSpace(query)})
		}
		return calls
	}
	return []Call{{Tool: strings.TrimSpace(d.ToolName), Query: strings.TrimSpace(d.ToolQuery)}}
}

// Verdict is the model's sufficiency judgment over the gathered evidence.
type Verdict struct {
	Sufficient     bool     `json:"sufficient"`
	MissingAspects []string `json:"missing_aspects"`
	Confidence     float64  `json:"confidence"`
}

// ParseDecision extracts and validates a Decision from raw model output.
func ParseDecision(raw string) (Decision, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Decision{}, fmt.Errorf("parse decision: %w", err)
	}
	var d Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return Decision{}, fmt.Errorf("parse decision: %w", err)
	}
	if d.NeedTool {
		for _, c := range d.Calls() {
			if c.Tool == "" {
				return Decision{}, fmt.Errorf("parse decision: need_tool set but no tool named")
			}
			if c.Query == "" {
				return Decision{}, fmt.Errorf("parse decision: tool %q has no query", c.Tool)
			}
		}
	}
	return d, nil
}

// ParseVerdict extracts and validates a Verdict. Confidence is clamped to
// [0, 1] rather than rejected.
func ParseVerdict(raw string) (Verdict, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	var v Verdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	return v, nil
}

// extractJSON pulls the first JSON object out of model output, tolerating
// surrounding prose and markdown code fences.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object")
}
