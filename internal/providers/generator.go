package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redlinehq/redline/internal/cache"
	"github.com/redlinehq/redline/internal/diff"
	"github.com/redlinehq/redline/internal/guideline"
	"github.com/redlinehq/redline/internal/redact"
	"github.com/redlinehq/redline/internal/review"
)

const generatorMaxTokens = 8192

// Generator adapts a Completer to the engine's finding generator. It
// owns the pass prompt, response parsing with one repair round, secret
// redaction, and response caching.
type Generator struct {
	completer   Completer
	cache       *cache.Cache
	redactOn    bool
	redactPaths []string
	log         *slog.Logger
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Cache         *cache.Cache
	RedactSecrets bool
	RedactPaths   []string
	Log           *slog.Logger
}

// NewGenerator wires a Generator around a provider.
func NewGenerator(completer Completer, opts GeneratorOptions) *Generator {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	c := opts.Cache
	if c == nil {
		c, _ = cache.New(false, "", 0)
	}
	return &Generator{
		completer:   completer,
		cache:       c,
		redactOn:    opts.RedactSecrets,
		redactPaths: opts.RedactPaths,
		log:         log,
	}
}

// rawFinding is the JSON structure the model must return.
type rawFinding struct {
	Path        string `json:"path"`
	Line        int    `json:"line"`
	GuidelineID string `json:"guideline_id"`
	Message     string `json:"message"`
}

// GenerateFindings runs one pass: one prompt enumerating the pass's
// guidelines over the full annotated diff, one completion, parsed into
// candidate findings.
func (g *Generator) GenerateFindings(ctx context.Context, d *diff.Diff, set guideline.Set) ([]review.Finding, error) {
	userPrompt := g.buildUserPrompt(d)
	systemPrompt := buildSystemPrompt(set)

	ids := make([]string, 0, set.Len())
	for _, gl := range set.Guidelines {
		ids = append(ids, gl.ID)
	}
	key := cache.Key(g.completer.Name(), modelLabel(g.completer), ids, userPrompt)
	if content, hit := g.cache.Get(key); hit {
		if findings, err := parseFindings(content); err == nil {
			g.log.Debug("pass response served from cache", "pass", set.Name)
			return findings, nil
		}
		// A cached response that no longer parses is treated as a miss.
	}

	resp, err := g.completer.Complete(ctx, Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    generatorMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	content := resp.Content
	findings, parseErr := parseFindings(content)
	if parseErr != nil {
		content, findings, err = g.repair(ctx, systemPrompt, content, parseErr)
		if err != nil {
			return nil, err
		}
	}
	if err := g.cache.Put(key, content); err != nil {
		g.log.Debug("caching pass response failed", "error", err)
	}
	return findings, nil
}

// repair gives the model one chance to fix an unparseable response.
func (g *Generator) repair(ctx context.Context, systemPrompt, content string, parseErr error) (string, []review.Finding, error) {
	g.log.Debug("model response was not valid JSON, attempting repair", "error", parseErr)
	repairPrompt := fmt.Sprintf(
		"Your previous response was not valid JSON. The error was: %s\n\nRespond with ONLY a valid JSON array of findings.\n\nYour previous response was:\n%s",
		parseErr.Error(), content,
	)
	resp, err := g.completer.Complete(ctx, Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   repairPrompt,
		MaxTokens:    generatorMaxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("repair pass failed: %w (original error: %w)", err, parseErr)
	}
	findings, err := parseFindings(resp.Content)
	if err != nil {
		return "", nil, fmt.Errorf("response validation failed after repair: %w", err)
	}
	return resp.Content, findings, nil
}

func parseFindings(content string) ([]review.Finding, error) {
	content = stripFences(strings.TrimSpace(content))

	var raw []rawFinding
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	findings := make([]review.Finding, 0, len(raw))
	for _, r := range raw {
		findings = append(findings, review.Finding{
			Path:        r.Path,
			Line:        r.Line,
			GuidelineID: r.GuidelineID,
			Message:     strings.TrimSpace(r.Message),
		})
	}
	return findings, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func buildSystemPrompt(set guideline.Set) string {
	var b strings.Builder
	b.WriteString("You are an automated code review agent. Your task is to strictly enforce the provided guidelines.\n\nGuidelines:\n")
	for _, g := range set.Guidelines {
		fmt.Fprintf(&b, "- [%s] %s\n", g.ID, g.Description)
	}
	b.WriteString(`
Instructions:
1. Only report violations of the specific guidelines listed above.
2. Ignore general best practices not in the list.
3. Only report violations on changed lines (prefixed with "+"). Line numbers are given at the start of each line.
4. Respond with ONLY a JSON array of findings. No markdown, no explanation.

Each finding must have this exact structure:
{
  "path": "relative/file/path",
  "line": 42,
  "guideline_id": "prefix/label",
  "message": "Brief explanation of why this code violates the rule"
}

If there are no violations, respond with an empty array: []`)
	return b.String()
}

func (g *Generator) buildUserPrompt(d *diff.Diff) string {
	var b strings.Builder
	b.WriteString("Review the following file changes:\n\n")
	for _, f := range d.Files {
		patch := f.Annotated
		if g.redactOn {
			patch = redact.Patch(patch, f.Path, g.redactPaths)
		}
		fmt.Fprintf(&b, "--- FILE: %s ---\n", f.Path)
		b.WriteString(patch)
		b.WriteString("\n")
	}
	return b.String()
}

// modelLabel extracts a model identity for cache keys. Providers embed
// the model in their own state, so the provider name plus the prompt is
// already discriminating; this adds the concrete model when available.
func modelLabel(c Completer) string {
	switch p := c.(type) {
	case *Azure:
		return p.deployment
	case *OpenAI:
		return p.model
	case *Anthropic:
		return p.model
	case *Ollama:
		return p.model
	default:
		return ""
	}
}
