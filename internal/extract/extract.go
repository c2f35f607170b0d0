// Package extract turns unstructured article text into structured project
// data using a local LLM, with a completeness-based confidence score.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"unicode/utf8"

	"civictrack/internal/llm"
)

const extractionPrompt = `You are analyzing city government and news articles about %[1]s projects.

Extract project information and return ONLY valid JSON with no markdown formatting or explanations.

Required JSON structure:
{
  "project_name": "exact name of the project",
  "location": "specific %[1]s neighborhood, district, or address",
  "project_type": "one of: housing, transit, infrastructure, parks, public_safety, other",
  "promised_completion": "completion date if mentioned (YYYY-MM-DD format), else null",
  "budget": "dollar amount if mentioned (include $, e.g. '$5 million'), else null",
  "official": "name of mayor/council member/official who announced, else null",
  "status": "one of: announced, approved, in_progress, delayed, completed, cancelled",
  "description": "single sentence summary of the project"
}

Rules:
1. Return ONLY the JSON object, no other text
2. Use null for missing information
3. Be precise with dates and amounts
4. Keep description under 150 characters
5. If no clear project is mentioned, return: {"project_name": null}

Article text:
%[2]s

JSON output:`

// responseTokens caps the LLM completion length for one extraction.
const responseTokens = 500

// ProjectTypes are the allowed project_type values.
var ProjectTypes = []string{"housing", "transit", "infrastructure", "parks", "public_safety", "other"}

// Statuses are the allowed project status values.
var Statuses = []string{"announced", "approved", "in_progress", "delayed", "completed", "cancelled"}

// ProjectData holds the structured fields extracted from one article.
// Empty strings mean the field was absent or null in the LLM output.
type ProjectData struct {
	ProjectName        string
	Location           string
	ProjectType        string
	PromisedCompletion string
	Budget             string
	Official           string
	Status             string
	Description        string
	SourceURL          string
	Confidence         float64
}

// Extractor sends article text through the extraction prompt.
type Extractor struct {
	provider  llm.Provider
	city      string
	maxTokens int
}

// New creates an Extractor. maxTokens bounds the prompt's context budget;
// input text is truncated to roughly three characters per token.
func New(provider llm.Provider, city string, maxTokens int) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Extractor{provider: provider, city: city, maxTokens: maxTokens}
}

// Extract analyzes article text and returns structured project data.
// Returns (nil, nil) when the model reports no project in the text;
// returns an error when the model output cannot be parsed.
func (e *Extractor) Extract(ctx context.Context, text, sourceURL string) (*ProjectData, error) {
	if e.provider == nil {
		return nil, errors.New("no LLM provider configured")
	}

	truncated := text
	if maxChars := e.maxTokens * 3; len(truncated) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		truncated = truncated[:cut]
	}

	prompt := fmt.Sprintf(extractionPrompt, e.city, truncated)

	response, err := e.provider.Generate(ctx, prompt, responseTokens)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	cleaned := llm.CleanJSONResponse(response)
	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parsing LLM response as JSON: %w", err)
	}

	name := getString(parsed, "project_name")
	if name == "" {
		log.Printf("no project found in article %s", sourceURL)
		return nil, nil
	}

	data := &ProjectData{
		ProjectName:        name,
		Location:           getString(parsed, "location"),
		ProjectType:        getString(parsed, "project_type"),
		PromisedCompletion: getString(parsed, "promised_completion"),
		Budget:             getString(parsed, "budget"),
		Official:           getString(parsed, "official"),
		Status:             getString(parsed, "status"),
		Description:        getString(parsed, "description"),
		SourceURL:          sourceURL,
	}
	data.Confidence = confidence(data)

	log.Printf("extracted project: %s (confidence %.2f)", data.ProjectName, data.Confidence)
	return data, nil
}

// confidence is the fraction of the eight expected fields that were
// populated, rounded to two decimals. project_type only counts when it is
// one of the allowed values.
func confidence(d *ProjectData) float64 {
	const totalFields = 8

	score := 0
	if d.ProjectName != "" {
		score++
	}
	if d.Location != "" {
		score++
	}
	if validProjectType(d.ProjectType) {
		score++
	}
	if d.Description != "" {
		score++
	}
	if d.PromisedCompletion != "" {
		score++
	}
	if d.Budget != "" {
		score++
	}
	if d.Official != "" {
		score++
	}
	if d.Status != "" {
		score++
	}

	return math.Round(float64(score)/totalFields*100) / 100
}

func validProjectType(t string) bool {
	for _, pt := range ProjectTypes {
		if t == pt {
			return true
		}
	}
	return false
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
