package align

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/promptlab/promptflow/store"
)

// Alignment errors.
var (
	// ErrMissingArtifact indicates a quality or feedback report expected
	// for the version being checked does not exist. This is reported, not
	// treated as "not aligned": it is a data-integrity failure.
	ErrMissingArtifact = errors.New("missing report artifact")
)

// Check reports whether every key the quality evaluation raised appears in
// the feedback that followed: qualityKeys ⊆ feedbackKeys. Pure function.
func Check(qualityKeys, feedbackKeys []string) bool {
	have := make(map[string]bool, len(feedbackKeys))
	for _, k := range feedbackKeys {
		have[k] = true
	}
	for _, k := range qualityKeys {
		if !have[k] {
			return false
		}
	}
	return true
}

// Result carries the alignment verdict plus the key sets it was based on,
// for event payloads.
type Result struct {
	Aligned      bool     `json:"aligned"`
	QualityKeys  []string `json:"quality_keys"`
	FeedbackKeys []string `json:"feedback_keys"`
}

// Checker resolves quality and feedback reports from artifact storage and
// runs the subset check between consecutive rounds.
type Checker struct {
	store store.Store
	root  string
}

// NewChecker creates a checker reading reports under the given store root.
func NewChecker(st store.Store, root string) *Checker {
	return &Checker{store: st, root: root}
}

// QualityReportKey returns the store key of the quality report for one
// version of an artifact lineage.
func (c *Checker) QualityReportKey(base, version string) string {
	return path.Join(c.root, fmt.Sprintf("%s_quality_v%s.json", base, version))
}

// FeedbackReportKey returns the store key of the feedback report for one
// version of an artifact lineage.
func (c *Checker) FeedbackReportKey(base, version string) string {
	return path.Join(c.root, fmt.Sprintf("%s_feedback_v%s.json", base, version))
}

// SaveQualityReport persists the dimension keys a quality evaluation raised.
func (c *Checker) SaveQualityReport(base, version string, keys []string) error {
	return c.saveReport(c.QualityReportKey(base, version), keys)
}

// SaveFeedbackReport persists the dimension keys an improvement addressed.
func (c *Checker) SaveFeedbackReport(base, version string, keys []string) error {
	return c.saveReport(c.FeedbackReportKey(base, version), keys)
}

// CheckReports loads both reports for the expected version and applies the
// subset rule. Returns ErrMissingArtifact if either report is absent.
func (c *Checker) CheckReports(base, version string) (Result, error) {
	quality, err := c.loadReport(c.QualityReportKey(base, version))
	if err != nil {
		return Result{}, fmt.Errorf("quality report %s v%s: %w", base, version, err)
	}
	feedback, err := c.loadReport(c.FeedbackReportKey(base, version))
	if err != nil {
		return Result{}, fmt.Errorf("feedback report %s v%s: %w", base, version, err)
	}

	return Result{
		Aligned:      Check(quality, feedback),
		QualityKeys:  quality,
		FeedbackKeys: feedback,
	}, nil
}

func (c *Checker) saveReport(key string, keys []string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	report := make(map[string]bool, len(sorted))
	for _, k := range sorted {
		report[k] = true
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.store.Write(key, data)
}

func (c *Checker) loadReport(key string) ([]string, error) {
	data, err := c.store.Read(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMissingArtifact
		}
		return nil, err
	}

	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", key, err)
	}

	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
