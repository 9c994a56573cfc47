// Package rp is a small client for the Report Portal REST API. It fetches the
// metadata of a single test item and records triage verdicts on it.
package rp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rptriage/rptriage/model"
	"github.com/rptriage/rptriage/validate"
	"github.com/rs/zerolog"
)

const (
	DefaultProject        = "ocs"
	DefaultRunIDAttribute = "run_id"

	logsURLMarker  = "Logs URL:"
	clustersMarker = "openshift-clusters/"

	logPageSize = 100
	maxLogPages = 20
	maxBodySize = 16 << 20
)

// Client talks to one Report Portal instance.
type Client struct {
	logger         zerolog.Logger
	baseURL        string
	token          string
	project        string
	runIDAttribute string
	httpClient     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithProject sets the Report Portal project.
func WithProject(project string) Option {
	return func(c *Client) {
		if project != "" {
			c.project = project
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRunIDAttribute sets the launch attribute that identifies the execution.
func WithRunIDAttribute(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.runIDAttribute = key
		}
	}
}

// New creates a client for baseURL (scheme://host) authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		logger:         zerolog.Nop(),
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		project:        DefaultProject,
		runIDAttribute: DefaultRunIDAttribute,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Project returns the configured project.
func (c *Client) Project() string {
	return c.project
}

// attribute is a launch attribute as returned by the API.
type attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type launch struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attributes  []attribute `json:"attributes"`
}

type launchPage struct {
	Content []launch `json:"content"`
}

type item struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type logEntry struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

type logPage struct {
	Content []logEntry `json:"content"`
	Page    struct {
		Number     int `json:"number"`
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

// FetchRun retrieves the launch, the test item and its ERROR logs and
// assembles them into a RunRecord. Records missing required fields are
// rejected rather than returned partially filled.
func (c *Client) FetchRun(ctx context.Context, loc Locator) (*model.RunRecord, error) {
	c.logger.Debug().
		Str("launch", loc.LaunchID).
		Str("item", loc.ItemID).
		Str("project", c.project).
		Msg("Fetching run metadata")

	l, err := c.fetchLaunch(ctx, loc.LaunchID)
	if err != nil {
		return nil, err
	}

	it, err := c.fetchItem(ctx, loc.ItemID)
	if err != nil {
		return nil, err
	}

	logs, err := c.fetchErrorLogs(ctx, loc.ItemID)
	if err != nil {
		return nil, err
	}

	record := &model.RunRecord{
		LaunchID:          loc.LaunchID,
		ItemID:            loc.ItemID,
		TestName:          it.Name,
		Status:            model.ParseStatus(it.Status),
		LaunchDescription: l.Description,
		Attributes:        make(map[string]string),
	}

	for _, attr := range l.Attributes {
		if attr.Key != "" {
			record.Attributes[attr.Key] = attr.Value
		}
	}
	record.RunID = record.Attributes[c.runIDAttribute]
	if record.RunID == "" {
		return nil, fmt.Errorf("%w: launch %s has no %q attribute", model.ErrMalformedRecord, loc.LaunchID, c.runIDAttribute)
	}
	if err := validate.Value(c.runIDAttribute, record.RunID); err != nil {
		return nil, err
	}

	record.LogsURLRoot, record.ClusterName = parseDescription(l.Description)
	if err := validate.Optional("logs URL", record.LogsURLRoot); err != nil {
		return nil, err
	}
	if record.ClusterName != "" {
		if err := validate.PathSegment("cluster name", record.ClusterName); err != nil {
			return nil, err
		}
	}

	messages := make([]string, 0, len(logs))
	for _, entry := range logs {
		messages = append(messages, entry.Message)
		if record.ErrorMessage == "" && entry.Message != "" {
			lines := strings.Split(entry.Message, "\n")
			record.ErrorMessage = strings.TrimSpace(lines[len(lines)-1])
		}
	}
	record.Traceback = strings.Join(messages, "\n")

	c.logger.Debug().
		Str("test", record.TestName).
		Str("status", string(record.Status)).
		Int("errorLogs", len(logs)).
		Str("logsURL", record.LogsURLRoot).
		Msg("Fetched run metadata")

	return record, nil
}

func (c *Client) fetchLaunch(ctx context.Context, launchID string) (*launch, error) {
	var page launchPage
	query := url.Values{"filter.eq.id": {launchID}}
	if err := c.getJSON(ctx, "launch", query, &page); err != nil {
		return nil, err
	}
	if len(page.Content) == 0 {
		return nil, fmt.Errorf("%w: %w: no launch with id %s", model.ErrMalformedRecord, model.ErrNotFound, launchID)
	}
	return &page.Content[0], nil
}

func (c *Client) fetchItem(ctx context.Context, itemID string) (*item, error) {
	var it item
	if err := c.getJSON(ctx, "item/"+itemID, nil, &it); err != nil {
		return nil, err
	}
	if it.Name == "" {
		return nil, fmt.Errorf("%w: item %s has no name", model.ErrMalformedRecord, itemID)
	}
	if it.Status == "" {
		return nil, fmt.Errorf("%w: item %s has no status", model.ErrMalformedRecord, itemID)
	}
	return &it, nil
}

// fetchErrorLogs pages through the ERROR level logs of an item in log time order.
func (c *Client) fetchErrorLogs(ctx context.Context, itemID string) ([]logEntry, error) {
	var entries []logEntry
	for pageNo := 1; pageNo <= maxLogPages; pageNo++ {
		query := url.Values{
			"filter.eq.item":  {itemID},
			"filter.in.level": {"ERROR"},
			"page.page":       {strconv.Itoa(pageNo)},
			"page.size":       {strconv.Itoa(logPageSize)},
			"page.sort":       {"logTime,ASC"},
		}

		var page logPage
		if err := c.getJSON(ctx, "log", query, &page); err != nil {
			return nil, err
		}
		entries = append(entries, page.Content...)

		if page.Page.TotalPages <= pageNo || len(page.Content) == 0 {
			return entries, nil
		}
	}

	c.logger.Warn().Str("item", itemID).Int("pages", maxLogPages).Msg("ERROR logs truncated")
	return entries, nil
}

// getJSON issues an authenticated GET below /api/v1/<project>/ and decodes the response.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", model.ErrInvalidInput, err)
	}
	return c.do(req, out)
}

func (c *Client) endpoint(path string, query url.Values) string {
	endpoint := fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, url.PathEscape(c.project), path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Calling Report Portal API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", model.ErrUnreachable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", model.ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned HTTP %d: %s", model.ErrUnreachable, req.Method, req.URL.Path, resp.StatusCode, truncate(string(body), 200))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", model.ErrMalformedRecord, req.URL.Path, err)
	}
	return nil
}

// Defect is a triage verdict to record on a test item.
type Defect struct {
	Label   model.Label
	Comment string
	// Optional link to an external ticket
	LinkURL string
	// Ticket ID shown for the link, defaults to LinkURL
	TicketID string
}

type externalIssue struct {
	URL        string `json:"url"`
	TicketID   string `json:"ticketId"`
	BtsURL     string `json:"btsUrl"`
	BtsProject string `json:"btsProject"`
}

type issue struct {
	IssueType            string          `json:"issueType"`
	Comment              string          `json:"comment"`
	AutoAnalyzed         bool            `json:"autoAnalyzed"`
	IgnoreAnalyzer       bool            `json:"ignoreAnalyzer"`
	ExternalSystemIssues []externalIssue `json:"externalSystemIssues,omitempty"`
}

type issueDefinition struct {
	TestItemID int64 `json:"testItemId"`
	Issue      issue `json:"issue"`
}

type defectRequest struct {
	Issues []issueDefinition `json:"issues"`
}

// UpdateDefect sets the defect type and comment of a test item and returns
// the raw API response.
func (c *Client) UpdateDefect(ctx context.Context, itemID string, d Defect) (json.RawMessage, error) {
	id, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: item id must be numeric: %q", model.ErrInvalidInput, itemID)
	}
	issueType := d.Label.IssueType()
	if issueType == "" {
		return nil, fmt.Errorf("%w: unknown classification %q", model.ErrInvalidInput, d.Label)
	}

	is := issue{
		IssueType: issueType,
		Comment:   d.Comment,
	}
	if d.LinkURL != "" {
		if u, err := url.Parse(d.LinkURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: link must be an http(s) URL: %q", model.ErrInvalidInput, d.LinkURL)
		}
		ticketID := d.TicketID
		if ticketID == "" {
			ticketID = d.LinkURL
		}
		is.ExternalSystemIssues = []externalIssue{{
			URL:      d.LinkURL,
			TicketID: ticketID,
			BtsURL:   d.LinkURL,
		}}
	}

	payload, err := json.Marshal(defectRequest{
		Issues: []issueDefinition{{TestItemID: id, Issue: is}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defect update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("item", nil), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", model.ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp json.RawMessage
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("item", itemID).
		Str("issueType", issueType).
		Msg("Updated defect type")

	return resp, nil
}

// parseDescription extracts the logs URL and the cluster name from a launch
// description such as "... Logs URL: http://host/openshift-clusters/<name>/<name>_<ts>/".
func parseDescription(description string) (logsURL, cluster string) {
	i := strings.Index(description, logsURLMarker)
	if i < 0 {
		return "", ""
	}
	fields := strings.Fields(description[i+len(logsURLMarker):])
	if len(fields) == 0 {
		return "", ""
	}
	logsURL = fields[0]

	if j := strings.Index(logsURL, clustersMarker); j >= 0 {
		cluster, _, _ = strings.Cut(logsURL[j+len(clustersMarker):], "/")
	}
	return logsURL, cluster
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
