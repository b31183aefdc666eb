package extract

// extractorPrompt instructs the model to report only change information
// that is explicitly present in the page text. The first verb of the
// reply contract matters more than completeness: empty fields are
// preferred over invented ones.
const extractorPrompt = `CRITICAL: Extract ONLY information that is explicitly and verifiably present in the webpage content. You must NOT invent, infer, or assume any information.

## Extraction Goal
%s

## Webpage Content
%s

## STRICT INSTRUCTIONS

### STEP 1: Page Content Analysis
First, analyze what type of content this page actually contains:
- License file: contains only legal text, NEVER contains API change information
- General index/overview: usually contains no specific change information
- API reference documentation: may contain version notes, but often doesn't
- Migration guide/release notes: most likely to contain change information

### STEP 2: Evidence-Based Extraction
ONLY extract information if you find EXPLICIT EVIDENCE in the content:

ACCEPTABLE EVIDENCE (extract if found):
- Exact text containing: "deprecated", "removed", "obsolete", "replaced", "superseded"
- Version-specific statements: "since version X.X", "deprecated in version X.X"
- Direct replacement statements: "Use X instead of Y", "X replaces Y"
- Explicit migration instructions

UNACCEPTABLE EVIDENCE (DO NOT extract):
- General descriptions of what the API does
- Feature benefits or performance claims
- Comparisons between APIs without explicit replacement statements
- Any information that requires inference or assumption

### STEP 3: Truthfulness Verification
For each piece of information you extract, ask yourself:
1. "Can I point to the exact sentence that says this?"
2. "Is this stated as a fact, not as a possibility?"
3. "Is this about version changes or just general description?"

If you cannot answer YES to all three questions, DO NOT extract the information.

## Extraction Rules

1. EMPTY IS BETTER THAN WRONG: if no clear evidence exists, leave fields empty
2. EXACT QUOTES: when possible, use the exact wording from the page
3. NO INFERENCE: never assume relationships between APIs unless explicitly stated
4. HONESTY ABOUT LIMITATIONS: if the page doesn't contain change info, state that

## JSON Output Format
Respond with a JSON object containing the following fields:

{
  "api": "string",
  "package": "string",
  "language": "string",
  "deprecated_in": "string",
  "removed_in": "string",
  "replaced_by": "string",
  "change_type": "string",
  "reason": "string",
  "source": "string"
}

change_type must be one of: "API Removal", "API Deprecation", "Parameter Change", "Behavior Change", "Performance Optimization", or empty.

## FINAL REMINDER
- Your primary responsibility is TRUTH, not completeness
- It is better to return empty fields than to invent information
- If you cannot find explicit evidence of API changes in the content, change_type and reason must be empty
- NEVER extract change information from license files, general overviews, or basic API documentation unless explicit change statements are present
- Return your response as valid JSON
`
