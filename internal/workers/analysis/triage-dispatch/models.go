// internal/workers/analysis/triage-dispatch/models.go
package triagedispatch

import "fmt"

const (
	VisualAnalystRole = "Forensic Image Analyst"
	TextAnalystRole   = "Fact-Checking Journalist"

	TranscriptTag = "transcript"
)

// FrameTag names the finding produced for the frame at position i.
func FrameTag(i int) string {
	return fmt.Sprintf("frame_%d", i)
}

const visualInstructions = `Examine the attached video frame for signs of manipulation: AI generation
artifacts, inconsistent lighting or shadows, edited text or logos, and signs the
footage is recycled from an unrelated event. Report concrete observations only
and say plainly when nothing looks suspicious.`

const textInstructions = `Read the transcript of a video that may contain misinformation. List the
factual claims it makes, assess each against well-established facts and known
events, and flag statements that are false, misleading or unverifiable.`

type task struct {
	tag    string
	kind   string
	role   string
	instr  string
	text   string
	images []string
}
