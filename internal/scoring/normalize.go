package scoring

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CandidateProfile is the normalized candidate view built from a raw
// extraction payload. Agents disagree on key casing and field shapes, so
// everything is normalized once here before leaving the API.
type CandidateProfile struct {
	CandidateName   string   `json:"candidate_name"`
	CurrentPosition string   `json:"current_position"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Location        string   `json:"location"`
	TotalExperience float64  `json:"total_experience"`
	SkillsMatched   []string `json:"skills_matched"`
}

// NormalizeCandidate builds a CandidateProfile from a raw
// resume_extracted payload. Missing fields fall back to "Unknown" names
// and zero values, never errors.
func NormalizeCandidate(raw any) CandidateProfile {
	data := ParseExtracted(raw)

	name := stringField(data, "Name", "candidate_name")
	if name == "" {
		name = "Unknown"
	}

	position := stringField(data, "Current_Position", "current_position")
	if position == "" {
		position = latestRole(data["Career_History"])
	}
	if position == "" {
		position = "Unknown Position"
	}

	return CandidateProfile{
		CandidateName:   name,
		CurrentPosition: position,
		Email:           stringField(data, "Email", "email"),
		Phone:           stringField(data, "Mobile", "phone"),
		Location:        stringField(data, "Current_Location", "location"),
		TotalExperience: ParseExperience(firstValue(data, "Total_Experience_Years", "total_experience")),
		SkillsMatched:   FlattenSkills(firstValue(data, "Technical_Skills", "skills_matched")),
	}
}

// NormalizeBreakdown maps a raw match_breakdown onto the fixed response
// shape. stabilityScore, when present, wins over the breakdown's
// cultural_fit value.
func NormalizeBreakdown(breakdown map[string]any, stabilityScore any) map[string]int {
	stability := intField(breakdown, "cultural_fit")
	if v, ok := asFloat(stabilityScore); ok {
		stability = int(v)
	}

	return map[string]int{
		"skills_match":     intField(breakdown, "Skill_Score", "skills_match"),
		"experience_match": intField(breakdown, "Experience_Score", "experience_match"),
		"location_match":   intField(breakdown, "Location_Score", "location_match"),
		"stability":        stability,
	}
}

// ParseExtracted accepts an extraction payload that may be a map or a
// JSON string (possibly fenced in a markdown code block) and returns a
// map, empty on any parse failure.
func ParseExtracted(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(v, "```json", ""), "```", ""))
		var data map[string]any
		if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
			return map[string]any{}
		}
		return data
	default:
		return map[string]any{}
	}
}

// ParseExperience parses experience values like "4+", "3-5 years" or
// 5.5 into a year count. Ranges take the lower bound; anything
// unparseable is 0.
func ParseExperience(raw any) float64 {
	if raw == nil {
		return 0
	}
	if f, ok := asFloat(raw); ok {
		return f
	}

	s, ok := raw.(string)
	if !ok {
		return 0
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "+", "")
	s = strings.ReplaceAll(s, " years", "")
	s = strings.ReplaceAll(s, "yrs", "")
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// FlattenSkills converts a skills payload to a flat list of strings. It
// accepts flat lists, category maps, and lists of category maps.
func FlattenSkills(raw any) []string {
	switch v := raw.(type) {
	case []any:
		var flat []string
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				flat = append(flat, entry)
			case map[string]any:
				flat = append(flat, flattenSkillMap(entry)...)
			}
		}
		return flat
	case []string:
		return v
	case map[string]any:
		return flattenSkillMap(v)
	default:
		return nil
	}
}

func flattenSkillMap(m map[string]any) []string {
	var flat []string
	for _, skills := range m {
		switch s := skills.(type) {
		case []any:
			for _, skill := range s {
				if str, ok := skill.(string); ok {
					flat = append(flat, str)
				}
			}
		case string:
			flat = append(flat, s)
		}
	}
	return flat
}

// latestRole pulls the most recent role out of a career history list.
func latestRole(raw any) string {
	history, ok := raw.([]any)
	if !ok || len(history) == 0 {
		return ""
	}
	latest, ok := history[len(history)-1].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(latest, "Role", "Job_Title")
}

// stringField returns the first non-empty string value among keys. A
// list value yields its first string element.
func stringField(data map[string]any, keys ...string) string {
	raw := firstValue(data, keys...)
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func intField(data map[string]any, keys ...string) int {
	if f, ok := asFloat(firstValue(data, keys...)); ok {
		return int(f)
	}
	return 0
}

func firstValue(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
