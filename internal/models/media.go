// internal/models/media.go
package models

// AnalysisRequest is created once per inbound call and owned by a single pipeline run.
type AnalysisRequest struct {
	RequestID string `json:"requestId"`
	SourceURL string `json:"sourceUrl"`
}

// MediaInfo is the metadata reported by the transport alongside the download.
type MediaInfo struct {
	Title       string `json:"title"`
	Uploader    string `json:"uploader"`
	Description string `json:"description,omitempty"`
}

type FrameRef struct {
	Index     int    `json:"index"`
	Location  string `json:"location"`
	Synthetic bool   `json:"synthetic"`
	Note      string `json:"note,omitempty"`
}

// MediaBundle is the deconstructed form of the source media. Frames keep
// acquisition-time temporal order.
type MediaBundle struct {
	VideoRef   string     `json:"videoRef"`
	Info       MediaInfo  `json:"info"`
	Frames     []FrameRef `json:"frames"`
	Transcript string     `json:"transcript"`
}

// Degraded reports whether any frame in the bundle is a synthetic placeholder.
func (b *MediaBundle) Degraded() bool {
	for _, f := range b.Frames {
		if f.Synthetic {
			return true
		}
	}
	return false
}
