package models

import "strconv"

// Target is one input URL together with its ordinal position in the
// deduplicated input list. The index is the stable ordering key for output.
type Target struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Severity classifies how much a target changed between two runs.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityNew      Severity = "new"
)

// ContentChange records a difference in one structured field between the
// previous and current capture of the same URL.
type ContentChange struct {
	Field    string   `json:"field"`
	Old      string   `json:"old"`
	New      string   `json:"new"`
	Severity Severity `json:"severity"`
}

// TLSInfo holds certificate details for secure origins.
type TLSInfo struct {
	Issuer    string `json:"issuer"`
	Subject   string `json:"subject"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
	Protocol  string `json:"protocol"`
}

// Cookie is the capped subset of a browser cookie retained per capture.
type Cookie struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// DiffUnavailable is the diff percentage sentinel used when a visual
// comparison could not be computed (missing or unreadable screenshots, or a
// target with no prior counterpart).
const DiffUnavailable = -1.0

// CaptureResult is one record per target: the structural and visual state
// observed by a capture worker, later enriched in place by the diff engine.
// Its identity is the URL; the index survives resume merges untouched.
type CaptureResult struct {
	Index         int               `json:"index"`
	URL           string            `json:"url"`
	FinalURL      string            `json:"final_url"`
	StatusCode    int               `json:"status_code"`
	Err           string            `json:"error,omitempty"`
	LoadMillis    int64             `json:"load_ms"`
	Title         string            `json:"title"`
	Headers       map[string]string `json:"headers,omitempty"`
	Technologies  []string          `json:"techs,omitempty"`
	Category      string            `json:"category,omitempty"`
	SecGrade      string            `json:"sec_grade"`
	SecHeaders    []string          `json:"sec_headers,omitempty"`
	RedirectChain []string          `json:"redirect_chain,omitempty"`
	TLS           *TLSInfo          `json:"tls,omitempty"`
	ConsoleLogs   []string          `json:"console_logs,omitempty"`
	Cookies       []Cookie          `json:"cookies,omitempty"`
	Screenshot    string            `json:"screenshot,omitempty"`
	Notes         string            `json:"notes,omitempty"`

	// Diff enrichment, present only when a previous run was supplied.
	DiffPercent    float64         `json:"diff_pct"`
	DiffSeverity   Severity        `json:"diff_severity,omitempty"`
	ContentChanges []ContentChange `json:"content_changes,omitempty"`
	DiffHeatmap    string          `json:"diff_heatmap,omitempty"`
	DiffCompare    string          `json:"diff_compare,omitempty"`
}

// Failed reports whether the capture exhausted its retries without success.
func (r *CaptureResult) Failed() bool { return r.Err != "" }

// StatusLabel renders the status the way reports and content diffs show it:
// the numeric code, or "ERR" for a failed capture.
func (r *CaptureResult) StatusLabel() string {
	if r.Failed() {
		return "ERR"
	}
	return strconv.Itoa(r.StatusCode)
}

// Counts aggregates the status buckets of one run.
type Counts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Warn    int `json:"warn"`
	Fail    int `json:"fail"`
}

// SeverityCounts aggregates the per-target severities of one diff pass.
type SeverityCounts struct {
	Critical  int `json:"critical"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
	New       int `json:"new"`
	Unchanged int `json:"unchanged"`
}

// Changed is the number of matched targets with any detected change.
func (s SeverityCounts) Changed() int { return s.Critical + s.High + s.Medium + s.Low }
