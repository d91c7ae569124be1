package export

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/verity-labs/chorus/internal/core"
)

func finishedSession(id core.SessionID, topic string) *core.Session {
	s := core.NewSession(id, topic, 2)
	s.Analysts = []core.Analyst{
		{Name: "Ada", Role: "Engineer", Focus: "architecture"},
		{Name: "Grace", Role: "Specialist", Focus: "tooling"},
	}
	s.Outputs = map[string]core.AnalystOutput{
		"Ada":   {Analyst: s.Analysts[0], Content: "solid findings"},
		"Grace": core.DegradedOutput(s.Analysts[1], "backend stalled"),
	}
	s.FinalReport = "# Grid Storage Report\n\nIntro paragraph.\n\n## Architecture\n\nFindings."
	s.CurrentStage = core.StageDone
	return s
}

func TestSlug(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Grid Storage Economics", "grid-storage-economics"},
		{"  What's next for AI?  ", "what-s-next-for-ai"},
		{"///", "report"},
		{"", "report"},
		{"MixedCASE and   spaces", "mixedcase-and-spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.topic))
		})
	}
}

func TestCompileAllWritesEveryFormat(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)
	session := finishedSession("0123456789abcdef", "Grid Storage")

	artifacts, err := c.CompileAll(session)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	// Same base name across formats, in the session's own directory.
	dir := filepath.Join(root, "grid-storage-01234567")
	assert.Equal(t, filepath.Join(dir, "grid-storage.docx"), artifacts[0].Path)
	assert.Equal(t, filepath.Join(dir, "grid-storage.pdf"), artifacts[1].Path)
	for _, a := range artifacts {
		info, err := os.Stat(a.Path)
		require.NoError(t, err)
		assert.Equal(t, a.Size, info.Size())
		assert.Positive(t, info.Size())
	}
}

func TestSameTopicSessionsGetDistinctDirectories(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)

	first, err := c.CompileAll(finishedSession("aaaaaaaa-1", "Grid Storage"))
	require.NoError(t, err)
	second, err := c.CompileAll(finishedSession("bbbbbbbb-2", "Grid Storage"))
	require.NoError(t, err)

	assert.NotEqual(t, first[0].Path, second[0].Path)
	assert.Equal(t, first[0].FileName, second[0].FileName, "base name depends on the topic only")

	// Both sets of artifacts coexist.
	for _, a := range append(first, second...) {
		_, err := os.Stat(a.Path)
		assert.NoError(t, err)
	}
}

func TestRecompileOverwrites(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)
	session := finishedSession("0123456789abcdef", "Grid Storage")

	first, err := c.CompileAll(session)
	require.NoError(t, err)
	second, err := c.CompileAll(session)
	require.NoError(t, err)
	assert.Equal(t, first[0].Path, second[0].Path)

	entries, err := os.ReadDir(filepath.Join(root, "grid-storage-01234567"))
	require.NoError(t, err)
	// docx, pdf, metadata.yaml — nothing duplicated or left behind.
	assert.Len(t, entries, 3)
}

func TestDocxArtifactIsReadableZip(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)

	artifact, err := c.Compile(Request{
		SessionID: "0123456789abcdef",
		Topic:     "Grid Storage",
		Report:    "# Title\n\nBody & special <chars>.",
		Format:    "docx",
	})
	require.NoError(t, err)

	zr, err := zip.OpenReader(artifact.Path)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])
	assert.True(t, names["word/document.xml"])

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		rc.Close()
		content := buf.String()
		assert.Contains(t, content, "Body &amp; special &lt;chars&gt;.")
		assert.NotContains(t, content, "# Title", "headings are styled, not passed through")
	}
}

func TestPDFArtifactStructure(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)

	artifact, err := c.Compile(Request{
		SessionID: "0123456789abcdef",
		Topic:     "Grid Storage",
		Report:    "Line with (parens) and back\\slash.",
		Format:    "pdf",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "%PDF-1.4"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(content), "%%EOF"))
	assert.Contains(t, content, `\(parens\)`)
	assert.Contains(t, content, "startxref")
}

func TestMetadataRoundTrip(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)
	session := finishedSession("0123456789abcdef", "Grid Storage")

	_, err := c.CompileAll(session)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "grid-storage-01234567", "metadata.yaml"))
	require.NoError(t, err)

	var meta reportMetadata
	require.NoError(t, yaml.Unmarshal(data, &meta))
	assert.Equal(t, "Grid Storage", meta.Topic)
	assert.Equal(t, "0123456789abcdef", meta.SessionID)
	assert.Len(t, meta.Analysts, 2)
	assert.Equal(t, 1, meta.Degraded)
	assert.ElementsMatch(t, []string{"grid-storage.docx", "grid-storage.pdf"}, meta.Files)
}

func TestFindArtifact(t *testing.T) {
	root := t.TempDir()
	c := NewCompiler(root, nil)
	session := finishedSession("0123456789abcdef", "Grid Storage")
	_, err := c.CompileAll(session)
	require.NoError(t, err)

	path, err := c.FindArtifact("grid-storage.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "grid-storage-01234567", "grid-storage.pdf"), path)

	_, err = c.FindArtifact("missing.pdf")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

	for _, name := range []string{"", "../etc/passwd", "a/b.pdf", ".."} {
		_, err := c.FindArtifact(name)
		assert.Error(t, err, "name %q must be rejected", name)
	}
}

func TestCompileRejectsBadRequests(t *testing.T) {
	c := NewCompiler(t.TempDir(), nil)

	_, err := c.Compile(Request{SessionID: "s", Topic: "t", Report: "r", Format: "odt"})
	require.Error(t, err)

	_, err = c.Compile(Request{SessionID: "s", Topic: "t", Report: "   ", Format: "pdf"})
	require.Error(t, err)
}

func TestWrapLines(t *testing.T) {
	long := strings.Repeat("word ", 40) // 200 chars
	lines := wrapLines(long, 50)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 50)
	}

	huge := strings.Repeat("x", 120)
	lines = wrapLines(huge, 50)
	assert.Len(t, lines, 3)
}
