package model

// MatchReason explains which matching tier produced a ProjectMatch.
type MatchReason string

const (
	MatchExact      MatchReason = "exact_match"
	MatchStartsWith MatchReason = "starts_with"
	MatchContains   MatchReason = "contains"
	MatchKeyword    MatchReason = "keyword_match"
)

// Match scores per tier. A project earns the score of the first tier it
// qualifies for; tiers are checked from exact down to keyword.
const (
	ScoreExact      = 100
	ScoreStartsWith = 90
	ScoreContains   = 70
	ScoreKeyword    = 60
)

// Project is a Todoist project as returned by the REST API. Projects are
// snapshot entries: the coordinator replaces the full list on every poll
// cycle and looks them up by ID or lower-cased name.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	Order      int    `json:"order,omitempty"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
	IsInbox    bool   `json:"is_inbox_project,omitempty"`
	ViewStyle  string `json:"view_style,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ProjectMatch is a Project augmented with a heuristic match score against
// a free-text query. Matches are transient; they are produced per query
// and never persisted.
type ProjectMatch struct {
	Project

	// MatchScore ranks how well the project name matched the query.
	MatchScore int `json:"match_score"`

	// MatchReason names the tier that produced the score.
	MatchReason MatchReason `json:"match_reason"`
}
