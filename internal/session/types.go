package session

// Project summarizes one encoded project directory
type Project struct {
	Name         string           `json:"name"`         // Encoded directory name
	Path         string           `json:"path"`         // Same as Name, relative to the projects root
	ProjectPath  string           `json:"projectPath"`  // Resolved working directory, or Name
	SessionCount int              `json:"sessionCount"` // All transcript files in the directory
	Sessions     []SessionPreview `json:"sessions"`     // Most recent first, at most 10
}

// SessionPreview is the per-file entry of a project listing
type SessionPreview struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FileSize     int64  `json:"fileSize"`
	LastModified string `json:"lastModified"` // File mtime, ISO-8601
	LastMessage  string `json:"lastMessage"`  // Last record timestamp, or LastModified
}

// SessionSummary holds the facts derived from one transcript
type SessionSummary struct {
	SessionID         string `json:"sessionId"`
	ProjectID         string `json:"projectId"`
	ProjectPath       string `json:"projectPath"`
	Timestamp         string `json:"timestamp"`   // First record
	LastMessage       string `json:"lastMessage"` // Last record
	Preview           string `json:"preview,omitempty"`
	Slug              string `json:"slug,omitempty"`
	MessageCount      int    `json:"messageCount"` // Non-meta user and assistant records
	TotalInputTokens  int64  `json:"totalInputTokens"`
	TotalOutputTokens int64  `json:"totalOutputTokens"`
	TotalTokens       int64  `json:"totalTokens"`
}

// SessionDetail is a full transcript
type SessionDetail struct {
	Project      string   `json:"project"`
	SessionID    string   `json:"sessionId"`
	MessageCount int      `json:"messageCount"`
	Messages     []Record `json:"messages"`
}

// Match types reported in search results
const (
	MatchUser      = "user"
	MatchAssistant = "assistant"
	MatchSystem    = "system"
	MatchCommand   = "command"
)

// SearchResult is a single search hit
type SearchResult struct {
	SessionID      string `json:"sessionId"`
	Project        string `json:"project"`
	Timestamp      string `json:"timestamp,omitempty"`
	MatchedContent string `json:"matchedContent"`
	MatchType      string `json:"matchType"`
}

// Stats is the aggregated token usage across all transcripts
type Stats struct {
	Global    GlobalStats    `json:"global"`
	ByProject []ProjectStats `json:"byProject"`
	ByDay     []DayStats     `json:"byDay"`
}

// GlobalStats holds corpus-wide totals
type GlobalStats struct {
	TotalTokens       int64 `json:"totalTokens"`
	TotalSessions     int   `json:"totalSessions"`
	TotalProjects     int   `json:"totalProjects"`
	TotalInputTokens  int64 `json:"totalInputTokens"`
	TotalOutputTokens int64 `json:"totalOutputTokens"`
}

// ProjectStats holds totals for one project directory
type ProjectStats struct {
	Project      string `json:"project"`
	ProjectPath  string `json:"projectPath"`
	Tokens       int64  `json:"tokens"`
	Sessions     int    `json:"sessions"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}

// DayStats holds totals for one calendar date (YYYY-MM-DD)
type DayStats struct {
	Date         string `json:"date"`
	Tokens       int64  `json:"tokens"`
	Sessions     int    `json:"sessions"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}
