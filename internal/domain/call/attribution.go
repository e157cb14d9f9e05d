package call

import (
	"fmt"
	"strings"
)

// Attribution assigns stable speaker labels to transcript events for one
// call, with no prior voice enrollment. The first unseen speaker channel is
// taken to be the employee, the second the manager; later channels get a
// generic participant label. Assignments are permanent for the call.
type Attribution struct {
	assistantName string
	roster        []string
	channels      map[string]string
	assigned      int
	lastLabel     string
	addressee     string
}

func NewAttribution(assistantName, employeeName, managerName string) *Attribution {
	return &Attribution{
		assistantName: assistantName,
		roster:        []string{employeeName, managerName},
		channels:      make(map[string]string),
	}
}

// Reset drops every channel assignment. Called at call start and call end.
func (a *Attribution) Reset() {
	a.channels = make(map[string]string)
	a.assigned = 0
	a.lastLabel = ""
	a.addressee = ""
}

// Label resolves the speaker label for one utterance. The assistant role is
// always the facilitator; an absent channel id reuses the last known label
// rather than burning a roster slot.
func (a *Attribution) Label(role, channelID string) string {
	if role == RoleAssistant {
		return a.assistantName
	}
	if channelID == "" {
		if a.lastLabel != "" {
			return a.lastLabel
		}
		return a.assign()
	}
	if label, ok := a.channels[channelID]; ok {
		a.lastLabel = label
		return label
	}
	label := a.assign()
	a.channels[channelID] = label
	return label
}

func (a *Attribution) assign() string {
	var label string
	if a.assigned < len(a.roster) && a.roster[a.assigned] != "" {
		label = a.roster[a.assigned]
	} else {
		label = fmt.Sprintf("Participant %d", a.assigned+1)
	}
	a.assigned++
	a.lastLabel = label
	return label
}

// InferAddressee decides who the facilitator is speaking to. Prefix match on
// either participant name wins outright; otherwise the first clause of the
// utterance is scanned for name containment, earliest occurrence winning.
// When neither name appears the previous addressee is kept.
func (a *Attribution) InferAddressee(utterance string) string {
	lowered := strings.ToLower(utterance)

	var prefixMatches []string
	for _, name := range a.roster {
		if name == "" {
			continue
		}
		if strings.HasPrefix(lowered, strings.ToLower(name)) {
			prefixMatches = append(prefixMatches, name)
		}
	}
	if len(prefixMatches) == 1 {
		a.addressee = prefixMatches[0]
		return a.addressee
	}

	clause := firstClause(lowered)
	bestIdx := -1
	best := ""
	for _, name := range a.roster {
		if name == "" {
			continue
		}
		idx := strings.Index(clause, strings.ToLower(name))
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			bestIdx = idx
			best = name
		}
	}
	if best != "" {
		a.addressee = best
	}
	return a.addressee
}

// Addressee returns the current addressee without re-inferring.
func (a *Attribution) Addressee() string {
	return a.addressee
}

func firstClause(s string) string {
	cut := len(s)
	for _, sep := range []string{".", "!", "?", ","} {
		if idx := strings.Index(s, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return s[:cut]
}
