package helix

// fullRankRows builds a small dataset around base whose sample covariance is
// diagonal and full rank: one row at base +0.5 and one at base -0.5 along
// each of the six parameters.
func fullRankRows(base StepParams) []StepParams {
	rows := make([]StepParams, 0, 2*NumParams)
	for j := 0; j < NumParams; j++ {
		up, down := base, base
		up[j] += 0.5
		down[j] -= 0.5
		rows = append(rows, up, down)
	}
	return rows
}
