package review

import "strings"

// NormalizeName lowers the name, rewrites ampersands to "and" and collapses
// runs of whitespace, so spoken titles ("Growth & Retention") line up with
// stored ones. Best effort only; callers must tolerate a miss.
func NormalizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, "&", "and")
	return strings.Join(strings.Fields(lowered), " ")
}

// findObjective resolves an objective by id first, then by normalized title.
// Returns nil when neither stage matches.
func findObjective(goals []Objective, id, name string) *Objective {
	if id != "" {
		for i := range goals {
			if goals[i].ID == id {
				return &goals[i]
			}
		}
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil
	}
	for i := range goals {
		if NormalizeName(goals[i].Title) == normalized {
			return &goals[i]
		}
	}
	return nil
}

// findKeyResult searches every objective's children, id stage before name
// stage across the whole record.
func findKeyResult(goals []Objective, id, name string) *KeyResult {
	if id != "" {
		for i := range goals {
			for j := range goals[i].KeyResults {
				if goals[i].KeyResults[j].ID == id {
					return &goals[i].KeyResults[j]
				}
			}
		}
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil
	}
	for i := range goals {
		for j := range goals[i].KeyResults {
			if NormalizeName(goals[i].KeyResults[j].Name) == normalized {
				return &goals[i].KeyResults[j]
			}
		}
	}
	return nil
}

// findCompetency matches by normalized name, falling back to prefix and then
// substring containment in either direction. The facilitator often shortens
// competency names mid-conversation ("problem solving" -> "problem").
func findCompetency(entries []CompetencyEntry, role, name string) *CompetencyEntry {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil
	}
	for i := range entries {
		if entries[i].Role == role && NormalizeName(entries[i].Name) == normalized {
			return &entries[i]
		}
	}
	for i := range entries {
		if entries[i].Role != role {
			continue
		}
		entryName := NormalizeName(entries[i].Name)
		if strings.HasPrefix(entryName, normalized) || strings.HasPrefix(normalized, entryName) {
			return &entries[i]
		}
	}
	for i := range entries {
		if entries[i].Role != role {
			continue
		}
		entryName := NormalizeName(entries[i].Name)
		if strings.Contains(entryName, normalized) || strings.Contains(normalized, entryName) {
			return &entries[i]
		}
	}
	return nil
}
