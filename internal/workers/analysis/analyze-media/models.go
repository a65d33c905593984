// internal/workers/analysis/analyze-media/models.go
package analyzemedia

import "vigil-workers/internal/models"

type Input struct {
	URL     string `json:"url"`
	UseGate bool   `json:"useGate"`
}

type Output struct {
	RequestID string                `json:"requestId"`
	Source    models.Source         `json:"source"`
	Report    *models.VerdictReport `json:"report"`
}
