package service

// StatsResponse is returned by calls to /stats, it maps every
// rewrite outcome counter (e.g. request_rewritten) to its count
type StatsResponse map[string]int64
