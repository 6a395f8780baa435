package forecast

// Aggregate resamples weekly rows into exactly months rows. Month m (from
// 1) reads its ending state from week min(m*4-1, len(weeks)-1) and sums
// the additions of weeks (m-1)*4 through that index.
func Aggregate(weeks []WeekRow, months int) []MonthRow {
	if len(weeks) == 0 || months <= 0 {
		return nil
	}
	out := make([]MonthRow, 0, months)
	for m := 0; m < months; m++ {
		end := (m+1)*weeksPerMonth - 1
		if end > len(weeks)-1 {
			end = len(weeks) - 1
		}
		last := weeks[end]
		row := MonthRow{
			Month:     m + 1,
			Followers: make(map[Platform]float64, len(last.Followers)),
			Total:     last.Total,
		}
		for p, v := range last.Followers {
			row.Followers[p] = v
		}
		for i := m * weeksPerMonth; i <= end; i++ {
			row.AddedOrganic += weeks[i].AddedOrganic
			row.AddedPaid += weeks[i].AddedPaid
		}
		row.Added = row.AddedOrganic + row.AddedPaid
		out = append(out, row)
	}
	return out
}

func (r *Result) trackGoal(startTotal float64) {
	r.StartTotal = startTotal
	r.Goal = 2 * startTotal
	r.ProjectedTotal = r.Final().Total
	if r.Goal > 0 {
		r.ProgressPct = r.ProjectedTotal / r.Goal * 100
		for _, m := range r.Months {
			if m.Total >= r.Goal {
				r.GoalMonth = m.Month
				break
			}
		}
	}
}
