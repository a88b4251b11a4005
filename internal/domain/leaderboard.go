package domain

// Leaderboard entry statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// LeaderboardEntry is one evaluated candidate.
type LeaderboardEntry struct {
	Seq           int                `json:"seq"`  // proposal order, 1-based
	Rank          int                `json:"rank"` // 1-based; 0 for rejected entries
	Status        string             `json:"status"`
	Generation    int                `json:"generation,omitempty"`
	Candidate     Candidate          `json:"candidate"`
	Metrics       PerformanceMetrics `json:"metrics"`
	RejectReasons []string           `json:"rejectReasons,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}
