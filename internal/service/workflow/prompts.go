package workflow

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// PromptKind distinguishes a stage's fixed role instruction from its
// per-request task prompts.
type PromptKind string

const (
	PromptSystem PromptKind = "system"
	PromptTask   PromptKind = "task"
)

// PromptMeta describes one embedded prompt template.
type PromptMeta struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Stage  core.StageName `json:"stage"`
	Kind   PromptKind     `json:"kind"`
	Sha256 string         `json:"sha256"`
}

type promptFrontmatter struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Stage string `yaml:"stage"`
	Kind  string `yaml:"kind"`
}

// PromptRenderer renders the embedded stage prompts.
type PromptRenderer struct {
	templates map[string]*template.Template
	meta      map[string]PromptMeta
	system    map[core.StageName]string
}

// NewPromptRenderer parses and validates every embedded template.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		templates: make(map[string]*template.Template),
		meta:      make(map[string]PromptMeta),
		system:    make(map[core.StageName]string),
	}
	if err := r.load(promptsFS); err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	for _, stage := range core.AllStages() {
		if _, ok := r.system[stage]; !ok {
			return nil, fmt.Errorf("loading prompts: no system prompt for stage %q", stage)
		}
	}
	return r, nil
}

func (r *PromptRenderer) load(fsys fs.FS) error {
	return fs.WalkDir(fsys, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		id := promptIDFromPath(path)
		fmRaw, body, ok := splitFrontmatter(string(content))
		if !ok {
			return fmt.Errorf("missing frontmatter (id=%s)", id)
		}
		var fm promptFrontmatter
		if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
			return fmt.Errorf("parsing frontmatter (id=%s): %w", id, err)
		}
		if err := validateFrontmatter(fm, id); err != nil {
			return err
		}

		meta := PromptMeta{
			ID:     fm.ID,
			Title:  fm.Title,
			Stage:  core.StageName(fm.Stage),
			Kind:   PromptKind(fm.Kind),
			Sha256: hashSha256(body),
		}
		r.meta[id] = meta

		if meta.Kind == PromptSystem {
			r.system[meta.Stage] = strings.TrimSpace(body)
			return nil
		}

		tmpl, err := template.New(id).Option("missingkey=error").Parse(body)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", id, err)
		}
		r.templates[id] = tmpl
		return nil
	})
}

func splitFrontmatter(raw string) (frontmatter, body string, ok bool) {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, false
	}
	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		return "", s, false
	}
	return rest[:end], strings.TrimLeft(rest[end+len("\n---\n"):], "\n"), true
}

func validateFrontmatter(fm promptFrontmatter, idFromFilename string) error {
	if fm.ID != idFromFilename {
		return fmt.Errorf("frontmatter: id %q does not match filename %q", fm.ID, idFromFilename)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return fmt.Errorf("frontmatter: title is required (id=%s)", fm.ID)
	}
	if core.StageOrder(core.StageName(fm.Stage)) < 0 || core.StageName(fm.Stage) == core.StageDone {
		return fmt.Errorf("frontmatter: invalid stage %q (id=%s)", fm.Stage, fm.ID)
	}
	switch PromptKind(fm.Kind) {
	case PromptSystem, PromptTask:
	default:
		return fmt.Errorf("frontmatter: invalid kind %q (id=%s)", fm.Kind, fm.ID)
	}
	return nil
}

func promptIDFromPath(path string) string {
	name := strings.TrimPrefix(path, "prompts/")
	return strings.TrimSuffix(name, ".md.tmpl")
}

func hashSha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// System returns the fixed role instruction of a stage.
func (r *PromptRenderer) System(stage core.StageName) string {
	return r.system[stage]
}

// Render executes a task template.
func (r *PromptRenderer) Render(id string, data any) (string, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return "", fmt.Errorf("template not found: %s", id)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", id, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// List returns every prompt's metadata in pipeline order.
func (r *PromptRenderer) List() []PromptMeta {
	out := make([]PromptMeta, 0, len(r.meta))
	for _, m := range r.meta {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := core.StageOrder(out[i].Stage), core.StageOrder(out[j].Stage)
		if oi != oj {
			return oi < oj
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == PromptSystem
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Template IDs and their data.
const (
	promptPlan      = "planner-plan"
	promptTasks     = "planner-tasks"
	promptResearch  = "researcher-research"
	promptItinerary = "executor-itinerary"
	promptReview    = "validator-review"
)

type planPromptData struct {
	Query   string
	History []core.Message
}

type tasksPromptData struct {
	Plan string
}

type researchPromptData struct {
	Plan  string
	Tasks string
	Query string
}

type itineraryPromptData struct {
	Plan     string
	Research string
	Query    string
}

type reviewPromptData struct {
	Content string
	Query   string
}
