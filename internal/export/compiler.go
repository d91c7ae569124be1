// Package export compiles finished reports into downloadable artifacts
// under a per-session directory namespace.
package export

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
)

// Request asks for one artifact in one format.
type Request struct {
	SessionID core.SessionID
	Topic     string
	Report    string
	Format    string
}

// Artifact describes one written file.
type Artifact struct {
	Format   string `json:"format"`
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Compiler writes report artifacts. Each session gets its own
// directory, `<slug>-<sid8>`, so two sessions on the same topic never
// share files. Within the directory every format shares the base name
// `<slug>.<ext>`, and recompiles overwrite atomically, which makes
// export retry-safe.
type Compiler struct {
	root      string
	logger    *logging.Logger
	renderers map[string]core.Renderer
}

// NewCompiler creates a compiler rooted at dir.
func NewCompiler(root string, logger *logging.Logger) *Compiler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compiler{
		root:   root,
		logger: logger,
		renderers: map[string]core.Renderer{
			"docx": NewDocxRenderer(),
			"pdf":  NewPDFRenderer(),
		},
	}
}

// Root returns the export root directory.
func (c *Compiler) Root() string {
	return c.root
}

// Formats returns the supported formats in stable order.
func (c *Compiler) Formats() []string {
	formats := make([]string, 0, len(c.renderers))
	for f := range c.renderers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Compile renders one artifact and writes it atomically.
func (c *Compiler) Compile(req Request) (*Artifact, error) {
	if strings.TrimSpace(req.Report) == "" {
		return nil, core.ErrState(core.CodeInvalidState, "no final report to export for session "+string(req.SessionID))
	}
	renderer, ok := c.renderers[req.Format]
	if !ok {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "unsupported export format: "+req.Format)
	}

	dir := filepath.Join(c.root, sessionNamespace(req.Topic, req.SessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.ErrExportFailed(req.Topic, req.Format, err)
	}

	doc := core.ReportDocument{
		Title:       reportTitle(req.Report, req.Topic),
		Topic:       req.Topic,
		SessionID:   req.SessionID,
		Body:        req.Report,
		GeneratedAt: time.Now(),
	}

	var buf bytes.Buffer
	if err := renderer.Render(doc, &buf); err != nil {
		return nil, core.ErrExportFailed(req.Topic, req.Format, err)
	}

	fileName := Slug(req.Topic) + "." + renderer.Extension()
	path := filepath.Join(dir, fileName)
	if err := atomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, core.ErrExportFailed(req.Topic, req.Format, err)
	}

	c.logger.WithSession(string(req.SessionID)).WithTopic(req.Topic).
		Info("artifact written", "format", req.Format, "path", path, "bytes", buf.Len())

	return &Artifact{
		Format:   req.Format,
		FileName: fileName,
		Path:     path,
		Size:     int64(buf.Len()),
	}, nil
}

// CompileAll renders every supported format for a finished session and
// writes the metadata file next to the artifacts.
func (c *Compiler) CompileAll(session *core.Session) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(c.renderers))
	for _, format := range c.Formats() {
		artifact, err := c.Compile(Request{
			SessionID: session.ID,
			Topic:     session.Topic,
			Report:    session.FinalReport,
			Format:    format,
		})
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	if err := c.writeMetadata(session, artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Artifacts returns the expected artifact set for a session if every
// file already exists on disk. Lets callers skip recompiling on every
// status read.
func (c *Compiler) Artifacts(session *core.Session) ([]Artifact, bool) {
	dir := filepath.Join(c.root, sessionNamespace(session.Topic, session.ID))
	artifacts := make([]Artifact, 0, len(c.renderers))
	for _, format := range c.Formats() {
		fileName := Slug(session.Topic) + "." + c.renderers[format].Extension()
		path := filepath.Join(dir, fileName)
		info, err := os.Stat(path)
		if err != nil {
			return nil, false
		}
		artifacts = append(artifacts, Artifact{
			Format:   format,
			FileName: fileName,
			Path:     path,
			Size:     info.Size(),
		})
	}
	return artifacts, true
}

// FindArtifact resolves a bare file name to its path under the export
// root. Names with path separators are rejected outright.
func (c *Compiler) FindArtifact(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", core.ErrValidation(core.CodeInvalidState, "invalid artifact name: "+name)
	}

	var found string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", core.ErrExportFailed("", "", err)
	}
	if found == "" {
		return "", core.ErrArtifactNotFound(name)
	}
	return found, nil
}

// reportMetadata is the YAML companion file written beside artifacts.
type reportMetadata struct {
	Topic       string         `yaml:"topic"`
	SessionID   string         `yaml:"session_id"`
	GeneratedAt time.Time      `yaml:"generated_at"`
	Analysts    []core.Analyst `yaml:"analysts"`
	Degraded    int            `yaml:"degraded_contributions"`
	Files       []string       `yaml:"files"`
}

func (c *Compiler) writeMetadata(session *core.Session, artifacts []Artifact) error {
	files := make([]string, len(artifacts))
	for i, a := range artifacts {
		files[i] = a.FileName
	}
	meta := reportMetadata{
		Topic:       session.Topic,
		SessionID:   string(session.ID),
		GeneratedAt: time.Now().UTC(),
		Analysts:    session.Analysts,
		Degraded:    session.DegradedCount(),
		Files:       files,
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return core.ErrExportFailed(session.Topic, "metadata", err)
	}
	path := filepath.Join(c.root, sessionNamespace(session.Topic, session.ID), "metadata.yaml")
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return core.ErrExportFailed(session.Topic, "metadata", err)
	}
	return nil
}

// Slug normalizes a topic into a filesystem-safe base name.
func Slug(topic string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
		if sb.Len() >= 60 {
			break
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "report"
	}
	return slug
}

// sessionNamespace builds the per-session directory name. The session
// suffix keeps two runs on the same topic apart.
func sessionNamespace(topic string, id core.SessionID) string {
	sid := string(id)
	if len(sid) > 8 {
		sid = sid[:8]
	}
	return fmt.Sprintf("%s-%s", Slug(topic), sid)
}

// reportTitle takes the first Markdown H1 of the report, falling back
// to the topic.
func reportTitle(report, topic string) string {
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	return topic
}
