package matching

import "math"

// AggregationPolicyVersion names the rule Aggregate implements. It is
// reported with every outcome so stored scores can be traced to a policy.
//
// blend-equal-v1: the survey average is the unweighted mean of the three
// field percentages. When both profiles carry an auxiliary vector the
// composite is the mean of the survey average and the auxiliary
// percentage; otherwise the auxiliary side is ignored.
const AggregationPolicyVersion = "blend-equal-v1"

// Aggregate combines per-field percentages and an optional auxiliary
// percentage into a composite in [0, 100].
func Aggregate(perField []int, auxiliary *int) int {
	if len(perField) == 0 {
		return 0
	}

	var sum float64
	for _, s := range perField {
		sum += float64(s)
	}
	surveyAverage := sum / float64(len(perField))

	composite := surveyAverage
	if auxiliary != nil {
		composite = (surveyAverage + float64(*auxiliary)) / 2
	}
	return clampPercent(int(math.Round(composite)))
}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}
