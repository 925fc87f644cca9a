package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Timestamp keeps an API time value as text. The API sends RFC 1123 strings
// for dates and epoch seconds for account updates; both decode here.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*t = Timestamp(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Health is the API liveness payload.
type Health struct {
	Status string `json:"status"`
}

// Article is one crawled article.
type Article struct {
	ID        string    `json:"id"`
	MPName    string    `json:"mp_name"`
	MPID      string    `json:"mp_id,omitempty"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	PublishAt Timestamp `json:"publish_at,omitempty"`
	Cover     string    `json:"cover,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// ArticleQuery filters the article list.
type ArticleQuery struct {
	MPName   string
	Q        string
	Start    string
	End      string
	Page     int
	PageSize int
}

// ArticlePage is one page of articles.
type ArticlePage struct {
	Total int       `json:"total"`
	Items []Article `json:"items"`
}

// Target is a subscribed official account the crawler polls.
type Target struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Biz           string    `json:"biz,omitempty"`
	Category      string    `json:"category,omitempty"`
	FreqMinutes   *int      `json:"freq_minutes,omitempty"`
	ScheduleMode  string    `json:"schedule_mode,omitempty"`
	IntervalValue *int      `json:"interval_value,omitempty"`
	IntervalUnit  string    `json:"interval_unit,omitempty"`
	DailyTimes    []string  `json:"daily_times,omitempty"`
	CronExpr      string    `json:"cron_expr,omitempty"`
	Enabled       bool      `json:"enabled"`
	AccountID     string    `json:"account_id,omitempty"`
	LastRunAt     Timestamp `json:"last_run_at,omitempty"`
	CreatedAt     Timestamp `json:"created_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	MPAvatar      string    `json:"mp_avatar,omitempty"`
	MPAlias       string    `json:"mp_alias,omitempty"`
	MPSignature   string    `json:"mp_signature,omitempty"`
}

// TargetInput creates or updates a target. Nil fields are left out of
// updates.
type TargetInput struct {
	Name          *string  `json:"name,omitempty"`
	Biz           *string  `json:"biz,omitempty"`
	Category      *string  `json:"category,omitempty"`
	FreqMinutes   *int     `json:"freq_minutes,omitempty"`
	ScheduleMode  *string  `json:"schedule_mode,omitempty"`
	IntervalValue *int     `json:"interval_value,omitempty"`
	IntervalUnit  *string  `json:"interval_unit,omitempty"`
	DailyTimes    []string `json:"daily_times,omitempty"`
	CronExpr      *string  `json:"cron_expr,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
	AccountID     *string  `json:"account_id,omitempty"`
}

// Account is a platform login used by the crawler.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token,omitempty"`
	Cookie    string    `json:"cookie,omitempty"`
	Remark    string    `json:"remark,omitempty"`
	UpdatedAt Timestamp `json:"updated_at,omitempty"`
}

// AccountInput creates or updates an account.
type AccountInput struct {
	Name   *string `json:"name,omitempty"`
	Token  *string `json:"token,omitempty"`
	Cookie *string `json:"cookie,omitempty"`
	Remark *string `json:"remark,omitempty"`
}

// LogEntry is one crawl log line.
type LogEntry struct {
	ID            string    `json:"id"`
	TargetID      string    `json:"target_id,omitempty"`
	TargetName    string    `json:"target_name,omitempty"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	Step          string    `json:"step,omitempty"`
	ArticlesCount *int      `json:"articles_count,omitempty"`
	NewCount      *int      `json:"new_count,omitempty"`
	ErrorType     string    `json:"error_type,omitempty"`
	DurationMS    *int64    `json:"duration_ms,omitempty"`
	CreatedAt     Timestamp `json:"created_at,omitempty"`
}

// LogQuery filters the crawl log list.
type LogQuery struct {
	TargetID   string
	TargetName string
	Status     string
	LatestOnly bool
	Page       int
	PageSize   int
}

// LogPage is one page of crawl logs.
type LogPage struct {
	Total int        `json:"total"`
	Items []LogEntry `json:"items"`
}
