// Package gitlab implements the merge-request change source and comment
// sink on top of the GitLab REST API.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/review"
)

const defaultBaseURL = "https://gitlab.com"

// Client provides access to the GitLab REST API for a single project.
// It implements review.ChangeSource and review.CommentSink; change refs
// are merge request IIDs.
type Client struct {
	token   string
	baseURL string
	project string
	httpCli *http.Client

	mu   sync.Mutex
	refs map[string]diffRefs
}

type diffRefs struct {
	BaseSHA  string `json:"base_sha"`
	StartSHA string `json:"start_sha"`
	HeadSHA  string `json:"head_sha"`
}

// NewClient creates a GitLab client. Requires GITLAB_TOKEN env var.
// A zero timeout means the default.
func NewClient(baseURL, project string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	token := os.Getenv("GITLAB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITLAB_TOKEN environment variable is not set")
	}
	if project == "" {
		return nil, fmt.Errorf("project is required (group/name or numeric ID)")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		project: project,
		httpCli: &http.Client{Timeout: timeout},
		refs:    make(map[string]diffRefs),
	}, nil
}

func (c *Client) projectURL() string {
	return fmt.Sprintf("%s/api/v4/projects/%s", c.baseURL, url.PathEscape(c.project))
}

type mrChange struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	DeletedFile bool   `json:"deleted_file"`
	RenamedFile bool   `json:"renamed_file"`
}

type mrChanges struct {
	Changes  []mrChange `json:"changes"`
	DiffRefs diffRefs   `json:"diff_refs"`
}

// FetchDiff fetches the merge request changes and assembles them into a
// Diff. The MR's diff_refs are cached so PostComment can anchor inline
// positions to the same revision.
func (c *Client) FetchDiff(ctx context.Context, changeRef string) (*diff.Diff, error) {
	endpoint := fmt.Sprintf("%s/merge_requests/%s/changes", c.projectURL(), url.PathEscape(changeRef))

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var changes mrChanges
	if err := json.Unmarshal(body, &changes); err != nil {
		return nil, fmt.Errorf("parsing merge request changes: %w", err)
	}

	c.mu.Lock()
	c.refs[changeRef] = changes.DiffRefs
	c.mu.Unlock()

	raw := assembleUnifiedDiff(changes.Changes)
	d, err := diff.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing merge request diff: %w", err)
	}
	return d, nil
}

// assembleUnifiedDiff rebuilds a git-style unified diff from the
// per-file fragments the changes endpoint returns.
func assembleUnifiedDiff(changes []mrChange) string {
	var sb strings.Builder
	for _, ch := range changes {
		if ch.DeletedFile || ch.Diff == "" {
			continue
		}
		fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", ch.OldPath, ch.NewPath)
		if ch.NewFile {
			sb.WriteString("new file mode 100644\n")
			fmt.Fprintf(&sb, "--- /dev/null\n+++ b/%s\n", ch.NewPath)
		} else {
			fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", ch.OldPath, ch.NewPath)
		}
		sb.WriteString(ch.Diff)
		if !strings.HasSuffix(ch.Diff, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

type notePosition struct {
	NewPath string `json:"new_path"`
	NewLine int    `json:"new_line"`
}

type note struct {
	ID       int           `json:"id"`
	Body     string        `json:"body"`
	System   bool          `json:"system"`
	Position *notePosition `json:"position"`
}

type discussion struct {
	ID    string `json:"id"`
	Notes []note `json:"notes"`
}

// FetchComments collects review comments already present on the merge
// request, walking all discussion pages. Only comments carrying a
// recognizable guideline ID and a resolvable location are returned;
// anything else cannot suppress a finding.
func (c *Client) FetchComments(ctx context.Context, changeRef string) ([]review.ExistingComment, error) {
	endpoint := fmt.Sprintf("%s/merge_requests/%s/discussions", c.projectURL(), url.PathEscape(changeRef))

	var comments []review.ExistingComment
	page := "1"
	for page != "" {
		query := url.Values{"per_page": {"100"}, "page": {page}}
		body, next, err := c.getPaged(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}

		var discussions []discussion
		if err := json.Unmarshal(body, &discussions); err != nil {
			return nil, fmt.Errorf("parsing discussions: %w", err)
		}

		for _, d := range discussions {
			for _, n := range d.Notes {
				if n.System {
					continue
				}
				if ec, ok := commentFromNote(n); ok {
					comments = append(comments, ec)
				}
			}
		}
		page = next
	}
	return comments, nil
}

func commentFromNote(n note) (review.ExistingComment, bool) {
	id := review.ParseGuidelineID(n.Body)
	if id == "" {
		return review.ExistingComment{}, false
	}
	if n.Position != nil && n.Position.NewPath != "" && n.Position.NewLine > 0 {
		return review.ExistingComment{
			Path:        n.Position.NewPath,
			Line:        n.Position.NewLine,
			GuidelineID: id,
		}, true
	}
	// General notes embed the location in the body.
	path, line, ok := review.ParseLocation(n.Body)
	if !ok {
		return review.ExistingComment{}, false
	}
	return review.ExistingComment{Path: path, Line: line, GuidelineID: id}, true
}

type positionPayload struct {
	PositionType string `json:"position_type"`
	BaseSHA      string `json:"base_sha"`
	HeadSHA      string `json:"head_sha"`
	StartSHA     string `json:"start_sha"`
	NewPath      string `json:"new_path"`
	NewLine      int    `json:"new_line"`
}

type discussionPayload struct {
	Body     string          `json:"body"`
	Position positionPayload `json:"position"`
}

// PostComment posts the finding as an inline discussion anchored to the
// changed line. When GitLab rejects the position (the line is no longer
// part of the diff) it falls back to a general note carrying the
// location in the body.
func (c *Client) PostComment(ctx context.Context, changeRef string, f review.Finding) error {
	refs, err := c.diffRefs(ctx, changeRef)
	if err != nil {
		return err
	}

	payload := discussionPayload{
		Body: review.FormatCommentBody(f),
		Position: positionPayload{
			PositionType: "text",
			BaseSHA:      refs.BaseSHA,
			HeadSHA:      refs.HeadSHA,
			StartSHA:     refs.StartSHA,
			NewPath:      f.Path,
			NewLine:      f.Line,
		},
	}

	endpoint := fmt.Sprintf("%s/merge_requests/%s/discussions", c.projectURL(), url.PathEscape(changeRef))
	status, body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	if status == http.StatusBadRequest {
		return c.PostNote(ctx, changeRef, review.FormatGeneralBody(f))
	}
	if status < 200 || status >= 300 {
		return statusError("posting discussion", status, body)
	}
	return nil
}

// PostNote posts a general note on the merge request.
func (c *Client) PostNote(ctx context.Context, changeRef, body string) error {
	endpoint := fmt.Sprintf("%s/merge_requests/%s/notes", c.projectURL(), url.PathEscape(changeRef))
	status, respBody, err := c.post(ctx, endpoint, map[string]string{"body": body})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return statusError("posting note", status, respBody)
	}
	return nil
}

// diffRefs returns the cached diff_refs for the MR, fetching the MR when
// the diff was not loaded through this client.
func (c *Client) diffRefs(ctx context.Context, changeRef string) (diffRefs, error) {
	c.mu.Lock()
	refs, ok := c.refs[changeRef]
	c.mu.Unlock()
	if ok {
		return refs, nil
	}

	endpoint := fmt.Sprintf("%s/merge_requests/%s", c.projectURL(), url.PathEscape(changeRef))
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return diffRefs{}, err
	}
	var mr struct {
		DiffRefs diffRefs `json:"diff_refs"`
	}
	if err := json.Unmarshal(body, &mr); err != nil {
		return diffRefs{}, fmt.Errorf("parsing merge request: %w", err)
	}

	c.mu.Lock()
	c.refs[changeRef] = mr.DiffRefs
	c.mu.Unlock()
	return mr.DiffRefs, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	body, _, err := c.getPaged(ctx, endpoint, query)
	return body, err
}

func (c *Client) getPaged(ctx context.Context, endpoint string, query url.Values) (body []byte, nextPage string, err error) {
	u := endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, "", &review.TransportError{Op: "gitlab request", Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("not found: %s", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError("GitLab API", resp.StatusCode, body)
	}
	return body, resp.Header.Get("X-Next-Page"), nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return 0, nil, &review.TransportError{Op: "gitlab request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func statusError(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	err := fmt.Errorf("%s error (status %d): %s", op, status, msg)
	if status == 401 || status == 403 || status >= 500 {
		return &review.TransportError{Op: op + " " + strconv.Itoa(status), Err: err}
	}
	return err
}
