package matcher

import (
	"fmt"
	"strings"

	"eolmatch/pkg/tools"
)

// SystemPrompt is the instruction for the agentic mode.
func SystemPrompt(threshold float64) string {
	return fmt.Sprintf(`You are a datastore matching agent with access to tools.

Your task is to match user-provided datastore names against the reference list and enrich low-confidence matches with end-of-life information.

WORKFLOW:
1. Call %[1]s ONCE to retrieve the reference list.
2. Compare every user datastore against the reference list.
3. Give each match a confidence score (0.0-1.0) and a short reasoning.
4. For matches with confidence < %.2[3]f, call %[2]s with the product name and version to get version and end-of-life data.

MATCHING RULES:
- Handle typos: "PostGres" -> "PostgreSQL"
- Ignore case: "mysql" = "MySQL"
- Match the closest version if the exact one is not listed
- The product name MUST match (PostgreSQL is never MySQL)
- Strip version suffixes: ".x", "x", "-log"
- Confidence: 1.0 = exact, 0.8-0.95 = very close, 0.6-0.75 = moderate, < 0.6 = uncertain

RESPONSE FORMAT:
When every datastore is processed, reply with a JSON array and nothing else:
`+"```json"+`
[
  {
    "input_datastore": "PostgreSQL 14",
    "matched_datastore": "PostgreSQL 14",
    "confidence": 1.0,
    "reasoning": "Exact match",
    "eol_data": null
  }
]
`+"```"+`
Set "eol_data" to the %[2]s result object when you looked one up, otherwise null.
Use "%[4]s" as matched_datastore when nothing in the reference list fits.`,
		tools.ToolGetReferenceList, tools.ToolLookupVersion, threshold, NotFound)
}

// UserPrompt lists the items to match.
func UserPrompt(inputs []string, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match the following %d datastore names against the reference list:\n\n", len(inputs))
	for i, in := range inputs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, in)
	}
	fmt.Fprintf(&b, "\nUse the available tools to:\n"+
		"1. Get the reference list\n"+
		"2. Match each datastore\n"+
		"3. Look up end-of-life information for low-confidence matches (< %.2f)\n\n"+
		"Provide structured results for all datastores when complete.", threshold)
	return b.String()
}

// DirectPrompt asks for a single match as a JSON object.
func DirectPrompt(input string, reference []string) string {
	var ref strings.Builder
	for _, r := range reference {
		ref.WriteString("- ")
		ref.WriteString(r)
		ref.WriteByte('\n')
	}

	return fmt.Sprintf(`TASK: Match the input datastore to the most appropriate reference value.

INPUT DATASTORE: %s

REFERENCE LIST:
%s
MATCHING RULES:
1. Handle typos: "PostGres" -> "PostgreSQL"
2. Ignore case: "mysql" = "MySQL"
3. Ignore special characters: "PostGres: 14.6" = "PostgreSQL 14.6"
4. Match the closest version if the exact one is not listed
5. The product name MUST match (PostgreSQL is never MySQL)
6. NEVER match different products
7. Strip version suffixes: ".x", "x", "-log"
8. Ignore qualifiers such as "SP2", "R2", "Enterprise" unless they appear in the reference

Confidence score 0.0-1.0:
- 1.0 = exact match
- 0.8-0.95 = very confident (minor differences)
- 0.6-0.75 = moderate confidence (unclear version)
- < 0.6 = low confidence (product unclear or not in list)

OUTPUT FORMAT (JSON only, no other text):
{
  "matched_datastore": "exact reference name from the list or '%s'",
  "confidence": 0.95,
  "reasoning": "brief explanation of the match"
}`, input, ref.String(), NotFound)
}
