package evaluation

import "fmt"

// Thresholds are the minimum averages a run must reach. Zero disables a check.
type Thresholds struct {
	MinRecall float64
	MinMRR    float64
}

// Check returns an error naming the first average below its threshold
func (t Thresholds) Check(s *EvalSummary) error {
	if s.AvgRecall < t.MinRecall {
		return fmt.Errorf("average recall@%d %.3f is below %.3f", s.K, s.AvgRecall, t.MinRecall)
	}
	if s.AvgMRR < t.MinMRR {
		return fmt.Errorf("average MRR@%d %.3f is below %.3f", s.K, s.AvgMRR, t.MinMRR)
	}
	return nil
}
