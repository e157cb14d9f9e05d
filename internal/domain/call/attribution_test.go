package call

import "testing"

func TestChannelAssignmentOrder(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")

	if got := attr.Label("user", "ch-1"); got != "Jordan Lee" {
		t.Fatalf("first channel = %q, want employee", got)
	}
	if got := attr.Label("user", "ch-2"); got != "Sam Rivera" {
		t.Fatalf("second channel = %q, want manager", got)
	}
	if got := attr.Label("user", "ch-3"); got != "Participant 3" {
		t.Fatalf("third channel = %q, want generic participant", got)
	}
}

func TestAssignmentIsPermanent(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")
	attr.Label("user", "ch-1")
	attr.Label("user", "ch-2")

	if got := attr.Label("user", "ch-1"); got != "Jordan Lee" {
		t.Fatalf("reassigned channel: %q", got)
	}
}

func TestAssistantRoleAlwaysFacilitator(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")
	if got := attr.Label(RoleAssistant, "ch-1"); got != "Ava" {
		t.Fatalf("assistant label = %q", got)
	}
	// The assistant must not consume a roster slot or a channel entry.
	if got := attr.Label("user", "ch-1"); got != "Jordan Lee" {
		t.Fatalf("first human channel = %q, want employee", got)
	}
}

func TestAbsentChannelReusesLastLabel(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")
	attr.Label("user", "ch-1")

	if got := attr.Label("user", ""); got != "Jordan Lee" {
		t.Fatalf("absent channel = %q, want last label", got)
	}
	// Still only one roster slot consumed.
	if got := attr.Label("user", "ch-2"); got != "Sam Rivera" {
		t.Fatalf("next channel = %q, want manager", got)
	}
}

func TestResetDropsAssignments(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")
	attr.Label("user", "ch-1")
	attr.Reset()

	if got := attr.Label("user", "ch-9"); got != "Jordan Lee" {
		t.Fatalf("after reset first channel = %q, want employee", got)
	}
}

func TestInferAddresseePrefixMatch(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")

	if got := attr.InferAddressee("Jordan Lee, how do you feel about this goal?"); got != "Jordan Lee" {
		t.Fatalf("prefix match = %q", got)
	}
}

func TestInferAddresseeFirstClauseEarliestWins(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")

	got := attr.InferAddressee("now Sam Rivera and Jordan Lee, let's talk ratings.")
	if got != "Sam Rivera" {
		t.Fatalf("earliest name should win, got %q", got)
	}
}

func TestInferAddresseeAmbiguousKeepsPrevious(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")
	attr.InferAddressee("Jordan Lee, your turn.")

	if got := attr.InferAddressee("Great, thank you for sharing that."); got != "Jordan Lee" {
		t.Fatalf("ambiguous utterance changed addressee to %q", got)
	}
}

func TestInferAddresseeIgnoresNamesPastFirstClause(t *testing.T) {
	attr := NewAttribution("Ava", "Jordan Lee", "Sam Rivera")

	got := attr.InferAddressee("thank you, Sam Rivera will go next.")
	if got != "" {
		t.Fatalf("name after the first clause should not match, got %q", got)
	}
}
