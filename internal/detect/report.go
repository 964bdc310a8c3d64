package detect

import (
	"time"

	"devprobe/internal/sysinfo"
)

// CategorySummary counts outcomes within one category.
type CategorySummary struct {
	Total            int     `json:"total"`
	Found            int     `json:"found"`
	Missing          int     `json:"missing"`
	EssentialTotal   int     `json:"essential_total"`
	EssentialFound   int     `json:"essential_found"`
	EssentialMissing int     `json:"essential_missing"`
	BelowMinimum     int     `json:"below_minimum"`
	SuccessRate      float64 `json:"success_rate"`
}

// CategoryReport holds one category's results in rule order.
type CategoryReport struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Results     []Result        `json:"results"`
	Summary     CategorySummary `json:"summary"`
	Duration    time.Duration   `json:"duration_ns"`
}

// Summary aggregates every category of a scan.
type Summary struct {
	Categories       int           `json:"categories"`
	TotalChecked     int           `json:"total_checked"`
	TotalFound       int           `json:"total_found"`
	TotalMissing     int           `json:"total_missing"`
	EssentialMissing int           `json:"essential_missing"`
	BelowMinimum     int           `json:"below_minimum"`
	SuccessRate      float64       `json:"success_rate"`
	DetectionTime    time.Duration `json:"detection_time_ns"`
}

// Report is the outcome of one DetectTools call.
type Report struct {
	ScanID     string           `json:"scan_id"`
	Platform   sysinfo.Platform `json:"platform"`
	System     sysinfo.Info     `json:"system"`
	Categories []CategoryReport `json:"categories"`
	Summary    Summary          `json:"summary"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration_ns"`
}

// Result returns the result for tool if the scan covered it.
func (r *Report) Result(tool string) (Result, bool) {
	for _, cat := range r.Categories {
		for _, res := range cat.Results {
			if res.Tool == tool {
				return res, true
			}
		}
	}
	return Result{}, false
}

// MissingEssentials lists essential tools that were not found.
func (r *Report) MissingEssentials() []Result {
	var out []Result
	for _, cat := range r.Categories {
		for _, res := range cat.Results {
			if res.Essential && !res.Found {
				out = append(out, res)
			}
		}
	}
	return out
}

func successRate(found, checked int) float64 {
	if checked == 0 {
		return 0
	}
	return float64(found) / float64(checked) * 100
}

func summarizeCategory(results []Result) CategorySummary {
	var s CategorySummary
	s.Total = len(results)
	for _, res := range results {
		if res.Found {
			s.Found++
		}
		if res.BelowMinimum {
			s.BelowMinimum++
		}
		if res.Essential {
			s.EssentialTotal++
			if res.Found {
				s.EssentialFound++
			}
		}
	}
	s.Missing = s.Total - s.Found
	s.EssentialMissing = s.EssentialTotal - s.EssentialFound
	s.SuccessRate = successRate(s.Found, s.Total)
	return s
}

func summarize(categories []CategoryReport, elapsed time.Duration) Summary {
	s := Summary{Categories: len(categories), DetectionTime: elapsed}
	for _, cat := range categories {
		s.TotalChecked += cat.Summary.Total
		s.TotalFound += cat.Summary.Found
		s.EssentialMissing += cat.Summary.EssentialMissing
		s.BelowMinimum += cat.Summary.BelowMinimum
	}
	s.TotalMissing = s.TotalChecked - s.TotalFound
	s.SuccessRate = successRate(s.TotalFound, s.TotalChecked)
	return s
}
