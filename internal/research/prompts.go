package research

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/scout/internal/tool"
)

const systemPrompt = `You are an intelligent research assistant with access to specialized tools. Your goal is to provide accurate, comprehensive, well-sourced answers.

DECISION GUIDELINES:
1. For academic or research questions, prefer arxiv_search, then web_search if needed
2. For current events, news, or popular topics, use web_search
3. For calculations, use calculator
4. For previously stored material, use index_search
5. To read the full content of a specific page or a promising search result, use web_scrape with the URL
6. For general knowledge you are confident about, no tools are needed

RESPONSE QUALITY:
- Always cite sources when using search results
- Be transparent about which information came from tools
- Acknowledge limitations when tools do not provide enough information`

func toolDescriptions(tools []tool.Tool) string {
	var b strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildDecisionPrompt(question string, tools []tool.Tool, log *EvidenceLog, missing []string) string {
	var b strings.Builder
	b.WriteString("Analyze this question and decide whether a tool is needed to answer it well.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", question)
	fmt.Fprintf(&b, "AVAILABLE TOOLS:\n%s\n\n", toolDescriptions(tools))
	fmt.Fprintf(&b, "EVIDENCE GATHERED SO FAR:\n%s\n\n", log.Render())
	if len(missing) > 0 {
		fmt.Fprintf(&b, "The evidence is still missing: %s\n\n", strings.Join(missing, "; "))
	}
	b.WriteString(`Think step by step: what information is needed, and which tool would provide it? Do not repeat a query that was already tried.

Respond with a single JSON object and nothing else:
{"need_tool": true|false, "tool_name": "<one of the available tools>", "tool_query": "<what to ask the tool>", "reasoning": "<why>"}

If several tools are needed at once, use parallel arrays instead of tool_name and tool_query:
{"need_tool": true, "tool_names": ["tool1", "tool2"], "tool_queries": ["query1", "query2"], "reasoning": "<why>"}

If you can answer from existing knowledge and evidence, respond with:
{"need_tool": false, "reasoning": "<why no tool is needed>"}`)
	return b.String()
}

func buildSufficiencyPrompt(question string, log *EvidenceLog) string {
	var b strings.Builder
	b.WriteString("Judge whether the gathered evidence is sufficient to answer the question well.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", question)
	fmt.Fprintf(&b, "EVIDENCE GATHERED:\n%s\n\n", log.Render())
	b.WriteString(`Respond with a single JSON object and nothing else:
{"sufficient": true|false, "missing_aspects": ["<aspect still uncovered>", ...], "confidence": <0.0 to 1.0>}

Set sufficient to true only when the evidence, combined with general knowledge, covers the question. List concrete missing aspects when it does not.`)
	return b.String()
}

func buildSynthesisPrompt(question string, log *EvidenceLog, degraded bool) string {
	var b strings.Builder
	b.WriteString("Synthesize a final answer to the user's question from the evidence below and your own knowledge.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", question)
	fmt.Fprintf(&b, "EVIDENCE:\n%s\n\n", log.Render())
	b.WriteString(`INSTRUCTIONS:
1. Combine the evidence with your existing knowledge into a comprehensive answer
2. Cite sources when using information from the evidence
3. Be clear about what comes from external sources versus your own knowledge
4. If the evidence is thin, acknowledge the limitation but still answer as helpfully as you can
5. Structure the response clearly`)
	if degraded {
		b.WriteString("\n6. The research process was cut short, so state plainly that the search was incomplete and the answer may be missing recent or specific information")
	}
	b.WriteString("\n\nProvide a well-structured, informative response:")
	return b.String()
}
