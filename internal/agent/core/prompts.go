package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mohammad-safakhou/scout/tools/web_retrieve"
)

const planningPromptTemplate = `You are a planning agent. Your job is to decide what information is still needed to answer the user query and how to get it.
You have access to a single tool, described below. Write a short, concrete plan the tool can act on.

If a previous plan is given, improve it using the feedback. The feedback is the list of answers produced so far in this session; use it to avoid repeating searches that did not help and to target what is still missing.

Current datetime: {{datetime}}

Tool description:
{{tool_specs}}

Previous plan:
{{plan}}

Feedback:
{{feedback}}

Do not answer the query yourself. Output only the plan.`

const integrationPromptTemplate = `You are an integration agent. Your job is to answer the user query using the research gathered by the tool.

Current datetime: {{datetime}}

User query:
{{query}}

Plan that guided the research:
{{plan}}

Research output:
{{outputs}}

Sources:
{{sources}}

Previous responses:
{{previous_response}}

Reason the last response was rejected:
{{reason}}

Write a complete, accurate answer to the query based on the research output. If the research does not contain the answer, say what is missing and what a follow-up search should look for, so the next plan can address it.
Cite the source URL when you use it. Do not invent facts or sources.`

const checkResponsePrompt = `You are a strict reviewer. Decide whether the response fully answers the query.

A response passes only when it addresses every part of the query with specific, current information. Compare it with the previous responses and the current datetime when the query is time sensitive. A response that says it could not find the information, or that only describes what should be searched next, fails.

Respond only with a JSON object of the form:
{"pass": "True" or "False", "reason": "<why the response passes or what is missing>"}`

// render fills {{name}} placeholders in a single pass so values containing
// braces are never expanded again.
func render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func planningPrompt(plan, feedback, toolSpecs, datetime string) string {
	return render(planningPromptTemplate, map[string]string{
		"plan":       orNone(plan),
		"feedback":   feedback,
		"tool_specs": toolSpecs,
		"datetime":   datetime,
	})
}

func integrationPrompt(query, plan string, outputs web_retrieve.ToolResult, reason, previous, datetime string) string {
	return render(integrationPromptTemplate, map[string]string{
		"outputs":           renderOutputs(outputs),
		"plan":              orNone(plan),
		"reason":            orNone(reason),
		"sources":           outputs.Source,
		"previous_response": previous,
		"datetime":          datetime,
		"query":             query,
	})
}

func assessmentInput(query, response, previous, datetime string) string {
	return "query: " + query + " \n\nresponse: " + response + " \n\nprevious response: " + previous + " \n\ncurrent datetime: " + datetime
}

func renderOutputs(r web_retrieve.ToolResult) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return r.Content
	}
	return strings.TrimRight(buf.String(), "\n")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
