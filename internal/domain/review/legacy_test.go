package review

import "testing"

func TestToLegacyPayloadFansOutAliases(t *testing.T) {
	record := Record{
		ID:              "rec-1",
		Accomplishments: "shipped v2",
		NextQuarterPlan: "lead the rollout",
		ManagerComments: "exceeded expectations",
	}

	payload := ToLegacyPayload(record)
	for _, key := range []string{"accomplishments", "keyAccomplishments", "cm1"} {
		if payload[key] != "shipped v2" {
			t.Fatalf("alias %q = %v", key, payload[key])
		}
	}
	if payload["nextQuarterPlans"] != "lead the rollout" {
		t.Fatalf("nextQuarterPlans alias missing: %v", payload["nextQuarterPlans"])
	}
	overall, ok := payload["overallComments"].(map[string]any)
	if !ok {
		t.Fatalf("overallComments missing: %v", payload["overallComments"])
	}
	if overall["cm1"] != "shipped v2" || overall["cm2"] != "lead the rollout" || overall["cm3"] != "exceeded expectations" {
		t.Fatalf("nested aliases wrong: %v", overall)
	}
}

func TestToSubmitPayloadStripsMetadata(t *testing.T) {
	payload := ToSubmitPayload(Record{ID: "rec-1"})
	if _, ok := payload["id"]; ok {
		t.Fatal("id not stripped")
	}
	if _, ok := payload["createdAt"]; ok {
		t.Fatal("createdAt not stripped")
	}
}

func TestFromLegacyPayloadReadsAnyAlias(t *testing.T) {
	record := FromLegacyPayload(map[string]any{
		"id":  "rec-9",
		"cm1": "legacy accomplishments",
		"overallComments": map[string]any{
			"cm2": "legacy plan",
		},
		"managerComments": "canonical comment",
	})

	if record.ID != "rec-9" {
		t.Fatalf("id not decoded: %q", record.ID)
	}
	if record.Accomplishments != "legacy accomplishments" {
		t.Fatalf("cm1 alias not read: %q", record.Accomplishments)
	}
	if record.NextQuarterPlan != "legacy plan" {
		t.Fatalf("nested cm2 alias not read: %q", record.NextQuarterPlan)
	}
	if record.ManagerComments != "canonical comment" {
		t.Fatalf("canonical field lost: %q", record.ManagerComments)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Hiring & Onboarding": "hiring and onboarding",
		"  Grow   Revenue  ":  "grow revenue",
		"PROBLEM Solving":     "problem solving",
	}
	for input, want := range cases {
		if got := NormalizeName(input); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", input, got, want)
		}
	}
}
