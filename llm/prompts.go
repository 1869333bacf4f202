package llm

import (
	"fmt"
)

// MemoryPlaceholder stands in for an empty memory in section prompts.
const MemoryPlaceholder = "none yet"

func getPlanningInstruction() string {
	return `You are a world-class software architect. Your task is to break down a prompt for a SINGLE-FILE application into a logical, ordered sequence of code sections.

Your plan MUST be a JSON object with a single root key named "plan".
The "plan" key holds a list of objects, one per logical section of the script, such as "Imports", "Constants and Configuration", "Helper Functions", "Main Class Definition", "User Interface", "Execution Block".
Each object must have exactly two keys:
- "section_name": the name of the code section.
- "description": a self-contained, step-by-step instruction for a programmer who will write THIS section without seeing the original request.

CRITICAL RULES:
1. Order the sections the way they must appear in the file: imports first, then constants and setup, then functions and classes, and the main execution logic last.
2. Every description MUST repeat every specific requirement from the request that is relevant to its section: names, libraries, labels, formulas, limits, file names, behaviours. Each section is written in isolation, so anything left out of its description will be missing from the final program.
3. Output ONLY the raw JSON object, without any surrounding text or markdown formatting.`
}

func getPlanningContent(masterPrompt string) string {
	return fmt.Sprintf(`Here is the detailed request for a single-file application:

---

%s

---

Create the JSON development plan.`, masterPrompt)
}

func getSectionInstruction() string {
	return `You are an expert Python programmer. Your task is to write a clean, functional block of code for one section of a larger single-file script.

CRITICAL RULES:
1. Output ONLY the raw code for the requested section.
2. Do NOT include explanations, commentary about your own code, or markdown formatting such as code fences.
3. Use the long-term and short-term memory of previously written sections so your code is consistent and compatible with them. Do not redefine what they already define.
4. The code must be complete for this section. Do not use placeholders or TODOs.`
}

func getSectionContent(longTerm, shortTerm, sectionName, description string) string {
	if longTerm == "" {
		longTerm = MemoryPlaceholder
	}
	if shortTerm == "" {
		shortTerm = MemoryPlaceholder
	}
	return fmt.Sprintf(`**Long-term memory (summaries of earlier sections):**
---
%s
---

**Short-term memory (most recent sections, verbatim):**
---
%s
---

**Current task:**
Write the complete code for the section named "%s".

**Instructions for this section:**
%s`, longTerm, shortTerm, sectionName, description)
}

func getSummaryInstruction() string {
	return `You compress finished code for a programmer who will continue the same script. Reply with a single, dense sentence naming the core functionality of the code and its key identifiers (functions, classes, variables, constants). No preamble, no markdown.`
}

func getSummaryContent(code string) string {
	return fmt.Sprintf("Summarize this code section:\n\n%s", code)
}

func getRefineInstruction() string {
	return `You are a senior code reviewer. You receive a complete single-file script that was written section by section, together with the original request.

Your job:
1. Fix bugs, broken references and inconsistencies between sections.
2. Remove redundant or duplicated imports, definitions and constructs.
3. Make sure the script fully complies with every requirement of the original request.

Output ONLY the corrected, complete script. No explanations and no markdown formatting.`
}

func getRefineContent(script, masterPrompt string) string {
	return fmt.Sprintf(`**Original request:**
---
%s
---

**Script to review:**
---
%s
---`, masterPrompt, script)
}
