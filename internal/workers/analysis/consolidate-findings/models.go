// internal/workers/analysis/consolidate-findings/models.go
package consolidatefindings

const EditorRole = "Senior Intelligence Editor"

const editorInstructions = `You receive the raw reports of several analysts who each examined one part of
a video: individual frames and the spoken transcript. Merge them into a single
briefing. Keep every concrete observation, note where reports agree or
contradict each other, and state explicitly which parts could not be analysed.
Do not reach a final verdict.`
