package review

import "encoding/json"

// The HR backend still speaks the review-form schema of its previous
// frontend, which stored each free-form comment under several keys at once.
// The record keeps one canonical field per comment; these adapters emit and
// read the aliases only at the API boundary.

var commentAliases = map[string][]string{
	ItemAccomplishments: {"accomplishments", "keyAccomplishments", "cm1"},
	ItemNextQuarterPlan: {"nextQuarterPlan", "nextQuarterPlans", "cm2"},
	ItemManagerComments: {"managerComments", "cm3"},
}

var nestedAliasKeys = map[string]string{
	ItemAccomplishments: "cm1",
	ItemNextQuarterPlan: "cm2",
	ItemManagerComments: "cm3",
}

// ToLegacyPayload renders the record in the backend's wire shape, fanning
// each canonical comment out to all of its aliases plus the nested
// overallComments object.
func ToLegacyPayload(record Record) map[string]any {
	encoded, err := json.Marshal(record)
	if err != nil {
		return map[string]any{}
	}
	payload := map[string]any{}
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return map[string]any{}
	}

	overall := map[string]any{}
	comments := map[string]string{
		ItemAccomplishments: record.Accomplishments,
		ItemNextQuarterPlan: record.NextQuarterPlan,
		ItemManagerComments: record.ManagerComments,
	}
	for item, value := range comments {
		for _, alias := range commentAliases[item] {
			payload[alias] = value
		}
		overall[nestedAliasKeys[item]] = value
	}
	payload["overallComments"] = overall
	return payload
}

// ToSubmitPayload is the legacy payload minus fields the backend rejects on
// write.
func ToSubmitPayload(record Record) map[string]any {
	payload := ToLegacyPayload(record)
	delete(payload, "id")
	delete(payload, "createdAt")
	return payload
}

// FromLegacyPayload decodes a backend review form, accepting any of the
// aliases for each comment field (first non-empty wins, canonical alias
// checked first).
func FromLegacyPayload(payload map[string]any) Record {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Record{}
	}
	var record Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return Record{}
	}

	record.Accomplishments = firstAlias(payload, ItemAccomplishments, record.Accomplishments)
	record.NextQuarterPlan = firstAlias(payload, ItemNextQuarterPlan, record.NextQuarterPlan)
	record.ManagerComments = firstAlias(payload, ItemManagerComments, record.ManagerComments)
	return record
}

func firstAlias(payload map[string]any, item, current string) string {
	if current != "" {
		return current
	}
	for _, alias := range commentAliases[item] {
		if value, ok := payload[alias].(string); ok && value != "" {
			return value
		}
	}
	if nested, ok := payload["overallComments"].(map[string]any); ok {
		if value, ok := nested[nestedAliasKeys[item]].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
