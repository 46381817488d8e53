package triage

import (
	"sort"

	"github.com/rpms/rpms/internal/domain/dailylog"
)

// rankUnknown places labels outside the known set after LOW.
const rankUnknown = 3

var riskRank = map[dailylog.RiskLevel]int{
	dailylog.RiskHigh:   0,
	dailylog.RiskMedium: 1,
	dailylog.RiskLow:    2,
}

// Rank returns the clinical priority of a risk label, lower first. Labels
// are matched exactly.
func Rank(r dailylog.RiskLevel) int {
	if n, ok := riskRank[r]; ok {
		return n
	}
	return rankUnknown
}

// Sort orders logs by risk rank, then newest first. Logs equal on both keys
// keep their input order.
func Sort(logs []*dailylog.DailyLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		ri, rj := Rank(logs[i].RiskLevel), Rank(logs[j].RiskLevel)
		if ri != rj {
			return ri < rj
		}
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
}
