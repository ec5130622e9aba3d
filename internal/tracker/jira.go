// Package tracker получает задачи участников из Jira Cloud.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/T1mof/team-capacity-service/internal/domain"
)

const (
	DefaultStoryPointsField = "customfield_10016"

	searchPath      = "/rest/api/3/search"
	defaultPageSize = 100
	maxAttempts     = 3
	jiraTimeLayout  = "2006-01-02T15:04:05.000-0700"
)

type Config struct {
	BaseURL          string
	Email            string
	APIToken         string
	StoryPointsField string
	RPS              float64
	Timeout          time.Duration
	PageSize         int
}

// Client ходит в Jira REST v3 с ограничением частоты и повторами на 429/5xx.
type Client struct {
	baseURL     string
	email       string
	token       string
	pointsField string
	pageSize    int
	http        *http.Client
	limiter     *rate.Limiter
	backoff     time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.StoryPointsField == "" {
		cfg.StoryPointsField = DefaultStoryPointsField
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		email:       cfg.Email,
		token:       cfg.APIToken,
		pointsField: cfg.StoryPointsField,
		pageSize:    cfg.PageSize,
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		backoff:     300 * time.Millisecond,
	}
}

// WorkedIssues задачи участника, обновлённые в диапазоне включительно.
func (c *Client) WorkedIssues(ctx context.Context, member domain.Member, rng domain.DateRange) ([]domain.Issue, error) {
	assignee := assigneeClause(member)
	if assignee == "" {
		return nil, nil
	}
	jql := fmt.Sprintf(`%s AND updated >= "%s" AND updated < "%s" ORDER BY updated ASC`,
		assignee,
		rng.Start.Format(domain.DateLayout),
		rng.End.AddDate(0, 0, 1).Format(domain.DateLayout),
	)
	return c.search(ctx, member, jql)
}

// OpenIssues незакрытые задачи участника.
func (c *Client) OpenIssues(ctx context.Context, member domain.Member) ([]domain.Issue, error) {
	assignee := assigneeClause(member)
	if assignee == "" {
		return nil, nil
	}
	jql := assignee + ` AND statusCategory != Done ORDER BY created ASC`
	return c.search(ctx, member, jql)
}

func assigneeClause(m domain.Member) string {
	switch {
	case m.TrackerAccountID != "":
		return fmt.Sprintf(`assignee = "%s"`, jqlEscape(m.TrackerAccountID))
	case m.Email != "":
		return fmt.Sprintf(`assignee = "%s"`, jqlEscape(m.Email))
	default:
		return ""
	}
}

var jqlReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// jqlEscape экранирует значение для строкового литерала JQL в двойных кавычках.
func jqlEscape(v string) string {
	return jqlReplacer.Replace(v)
}

// ========================================
// Search
// ========================================

type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

func (c *Client) search(ctx context.Context, member domain.Member, jql string) ([]domain.Issue, error) {
	if c.baseURL == "" {
		return nil, errors.New("jira: empty base URL")
	}

	var issues []domain.Issue
	for startAt := 0; ; {
		var page searchResponse
		err := c.doJSON(ctx, searchRequest{
			JQL:        jql,
			StartAt:    startAt,
			MaxResults: c.pageSize,
			Fields:     c.fields(),
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Issues {
			issue, err := c.toIssue(raw, member)
			if err != nil {
				slog.Warn("Skipping malformed Jira issue", "key", raw.Key, "error", err)
				continue
			}
			issues = append(issues, issue)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	slog.Debug("Jira search finished", "user_id", member.UserID, "issues", len(issues))
	return issues, nil
}

func (c *Client) fields() []string {
	return []string{"status", "timeoriginalestimate", "timespent", "created", "updated", "duedate", c.pointsField}
}

func (c *Client) doJSON(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("jira: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.post(ctx, payload, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
		slog.Warn("Jira request failed, retrying", "attempt", attempt+1, "error", err)
	}
	return lastErr
}

// post выполняет один запрос. retry сообщает, стоит ли повторить.
func (c *Client) post(ctx context.Context, payload []byte, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.email != "" && c.token != "" {
		req.SetBasicAuth(c.email, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("jira: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("jira: decode response: %w", err)
	}
	return false, nil
}

// ========================================
// Mapping
// ========================================

type jiraStatus struct {
	Name string `json:"name"`
}

// toIssue переводит секунды в часы и привязывает задачу к участнику.
func (c *Client) toIssue(raw jiraIssue, member domain.Member) (domain.Issue, error) {
	issue := domain.Issue{Key: raw.Key, Assignee: member.UserID}

	var status jiraStatus
	if err := decodeField(raw.Fields, "status", &status); err != nil {
		return domain.Issue{}, err
	}
	issue.Status = status.Name

	var estimate, spent *float64
	if err := decodeField(raw.Fields, "timeoriginalestimate", &estimate); err != nil {
		return domain.Issue{}, err
	}
	if err := decodeField(raw.Fields, "timespent", &spent); err != nil {
		return domain.Issue{}, err
	}
	if estimate != nil {
		issue.OriginalEstimateHours = *estimate / 3600
	}
	if spent != nil {
		issue.TimeSpentHours = *spent / 3600
	}

	points, err := storyPoints(raw.Fields[c.pointsField])
	if err != nil {
		return domain.Issue{}, fmt.Errorf("field %s: %w", c.pointsField, err)
	}
	issue.StoryPoints = points

	var created, updated, due string
	if err := decodeField(raw.Fields, "created", &created); err != nil {
		return domain.Issue{}, err
	}
	if err := decodeField(raw.Fields, "updated", &updated); err != nil {
		return domain.Issue{}, err
	}
	if err := decodeField(raw.Fields, "duedate", &due); err != nil {
		return domain.Issue{}, err
	}
	if issue.Created, err = parseJiraTime(created); err != nil {
		return domain.Issue{}, fmt.Errorf("created: %w", err)
	}
	if issue.Updated, err = parseJiraTime(updated); err != nil {
		return domain.Issue{}, fmt.Errorf("updated: %w", err)
	}
	if due != "" {
		d, err := time.Parse(domain.DateLayout, due)
		if err != nil {
			return domain.Issue{}, fmt.Errorf("duedate: %w", err)
		}
		issue.DueDate = &d
	}

	return issue, nil
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}

// storyPoints поле бывает числом или строкой в зависимости от схемы проекта.
func storyPoints(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseJiraTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(jiraTimeLayout, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
