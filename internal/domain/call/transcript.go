package call

import "time"

// Line is one labeled utterance in the conversation log. Partial lines are
// kept only until the final transcript for the turn replaces them.
type Line struct {
	Speaker   string    `json:"speaker"`
	Addressee string    `json:"addressee,omitempty"`
	Content   string    `json:"content"`
	Final     bool      `json:"final"`
	SpokenAt  time.Time `json:"spokenAt"`
}

// Transcript is the in-memory conversation log for one call. Not safe for
// concurrent use; the engine serializes access per session.
type Transcript struct {
	lines []Line
	now   func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append records an utterance. A partial line from the same speaker replaces
// the previous partial rather than stacking up.
func (t *Transcript) Append(speaker, addressee, content string, final bool) Line {
	line := Line{
		Speaker:   speaker,
		Addressee: addressee,
		Content:   content,
		Final:     final,
		SpokenAt:  t.now().UTC(),
	}
	if n := len(t.lines); n > 0 && !t.lines[n-1].Final && t.lines[n-1].Speaker == speaker {
		t.lines[n-1] = line
		return line
	}
	t.lines = append(t.lines, line)
	return line
}

func (t *Transcript) Lines() []Line {
	return append([]Line(nil), t.lines...)
}

func (t *Transcript) Reset() {
	t.lines = nil
}
