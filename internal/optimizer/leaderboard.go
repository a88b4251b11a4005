package optimizer

import (
	"sort"

	"strategy-lab/internal/domain"
)

// rankLess is the ranking key: higher return, then higher Sharpe, then lower
// drawdown, then earlier proposal.
func rankLess(a, b *domain.PerformanceMetrics, seqA, seqB int) bool {
	if a.TotalReturnPercent != b.TotalReturnPercent {
		return a.TotalReturnPercent > b.TotalReturnPercent
	}
	if a.SharpeRatio != b.SharpeRatio {
		return a.SharpeRatio > b.SharpeRatio
	}
	if a.MaxDrawdownPercent != b.MaxDrawdownPercent {
		return a.MaxDrawdownPercent < b.MaxDrawdownPercent
	}
	return seqA < seqB
}

// Leaderboard keeps every evaluated entry in proposal order and the accepted
// ones in rank order. Not safe for concurrent use.
type Leaderboard struct {
	history []*domain.LeaderboardEntry
	ranked  []*domain.LeaderboardEntry
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{}
}

// Insert records e. Completed entries are ranked; ranks are renumbered.
func (l *Leaderboard) Insert(e domain.LeaderboardEntry) {
	entry := &e
	l.history = append(l.history, entry)
	if entry.Status != domain.StatusCompleted {
		entry.Rank = 0
		return
	}

	i := sort.Search(len(l.ranked), func(i int) bool {
		r := l.ranked[i]
		return rankLess(&entry.Metrics, &r.Metrics, entry.Seq, r.Seq)
	})
	l.ranked = append(l.ranked, nil)
	copy(l.ranked[i+1:], l.ranked[i:])
	l.ranked[i] = entry

	for j := i; j < len(l.ranked); j++ {
		l.ranked[j].Rank = j + 1
	}
}

// Top returns up to n ranked entries, best first.
func (l *Leaderboard) Top(n int) []domain.LeaderboardEntry {
	if n > len(l.ranked) || n < 0 {
		n = len(l.ranked)
	}
	return copyEntries(l.ranked[:n])
}

// Ranked returns all accepted entries, best first.
func (l *Leaderboard) Ranked() []domain.LeaderboardEntry {
	return copyEntries(l.ranked)
}

// History returns every entry, rejected included, in proposal order.
func (l *Leaderboard) History() []domain.LeaderboardEntry {
	return copyEntries(l.history)
}

// Best returns the leader.
func (l *Leaderboard) Best() (domain.LeaderboardEntry, bool) {
	if len(l.ranked) == 0 {
		return domain.LeaderboardEntry{}, false
	}
	return *l.ranked[0], true
}

// Len returns the number of recorded entries.
func (l *Leaderboard) Len() int {
	return len(l.history)
}

func copyEntries(in []*domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(in))
	for i, e := range in {
		out[i] = *e
	}
	return out
}
