package entities

// LeaderboardMetric selects the account field used for ranking
type LeaderboardMetric string

const (
	MetricBalance LeaderboardMetric = "balance"
	MetricEarned  LeaderboardMetric = "earned"
	MetricSpent   LeaderboardMetric = "spent"
)

// Valid reports whether m is a known metric
func (m LeaderboardMetric) Valid() bool {
	switch m {
	case MetricBalance, MetricEarned, MetricSpent:
		return true
	}
	return false
}

// ValueOf returns the account field m ranks by
func (m LeaderboardMetric) ValueOf(a *UserAccount) int64 {
	switch m {
	case MetricEarned:
		return a.TotalEarned
	case MetricSpent:
		return a.TotalSpent
	default:
		return a.Wallet
	}
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank     int
	UserID   string
	Username string
	Value    int64
}
