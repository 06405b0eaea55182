//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/model"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "test.db")},
		LLM:    config.LLMConfig{Provider: "gemini"},
		Server: config.ServerConfig{Port: 8080},
	}
}

func TestImageDataURI(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	path := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, png, 0o644))

	uri, err := imageDataURI(path)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(png), uri)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	uri, err = imageDataURI(txt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = imageDataURI(empty)
	assert.Error(t, err)

	_, err = imageDataURI(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestFormatExtractResult(t *testing.T) {
	res := &extract.Result{
		ExtractedCount: 2,
		ImageCount:     2,
		Images: []extract.ImageResult{
			{Index: 0, Contacts: 1, Inserted: 1},
			{Index: 1, Contacts: 1, Inserted: 1, Fallback: true},
		},
	}
	var buf bytes.Buffer
	formatExtractResult(&buf, []string{"/tmp/a.png", "/tmp/b.png"}, res)

	out := buf.String()
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "regex fallback")
	assert.Contains(t, out, "Extracted 2 phone number(s) from 2 image(s)")
}

func TestResolveAPIKey(t *testing.T) {
	c := testConfig(t)
	withConfig(t, c)

	_, err := resolveAPIKey("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	key, err := resolveAPIKey("flag-key")
	require.NoError(t, err)
	assert.Equal(t, "flag-key", key)

	c.LLM.APIKey = "config-key"
	key, err = resolveAPIKey("")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)
}

func setGenerateFlags(t *testing.T, id, text, file string, custom bool) {
	t.Helper()
	prevID, prevText, prevFile, prevCustom := generateTemplateID, generateTemplateText, generateTemplateFile, generateCustom
	generateTemplateID, generateTemplateText, generateTemplateFile, generateCustom = id, text, file, custom
	t.Cleanup(func() {
		generateTemplateID, generateTemplateText, generateTemplateFile, generateCustom = prevID, prevText, prevFile, prevCustom
	})
}

func TestGenerateRequest(t *testing.T) {
	setGenerateFlags(t, "intro", "", "", false)
	req, err := generateRequest("k")
	require.NoError(t, err)
	assert.Equal(t, generate.Request{APIKey: "k", TemplateID: "intro"}, req)

	path := filepath.Join(t.TempDir(), "tmpl.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hi {name}"), 0o644))
	setGenerateFlags(t, "", "", path, false)
	req, err = generateRequest("k")
	require.NoError(t, err)
	assert.Equal(t, "Hi {name}", req.TemplateText)
	assert.True(t, req.IsCustom)

	setGenerateFlags(t, "", "Hi", path, false)
	_, err = generateRequest("k")
	assert.Error(t, err)
}

func TestOpenStore_SQLite(t *testing.T) {
	withConfig(t, testConfig(t))

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Ping(context.Background()))
}

func TestOpenStore_InvalidDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "mysql"
	withConfig(t, c)

	_, err := openStore(context.Background())
	assert.Error(t, err)
}

func runCmd(t *testing.T, c *cobra.Command, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetContext(context.Background())
	t.Cleanup(func() { c.SetOut(nil) })
	require.NoError(t, c.RunE(c, args))
	return buf.String()
}

func TestLeadsCommands_SQLite(t *testing.T) {
	withConfig(t, testConfig(t))
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	lead, err := st.InsertLead(ctx, "+1234567890", model.StringPtr("Ann"), model.LeadStatusUnsent)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out := runCmd(t, leadsListCmd)
	assert.Contains(t, out, lead.ID)
	assert.Contains(t, out, "Ann")

	out = runCmd(t, leadsMarkSentCmd, lead.ID)
	assert.Contains(t, out, "marked as sent")

	out = runCmd(t, leadsStatsCmd)
	assert.Contains(t, out, "Sent:")
	assert.Regexp(t, `Sent:\s+1`, out)

	out = runCmd(t, leadsExportCmd)
	assert.Contains(t, out, "Name,Phone,Message,WhatsApp Link,Status")
	assert.Contains(t, out, "Ann,+1234567890,,,sent")

	leadsMarkSentCmd.SetContext(ctx)
	err = leadsMarkSentCmd.RunE(leadsMarkSentCmd, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormatLeadsList(t *testing.T) {
	msg := "Hi Ann, this is a long message that will certainly be truncated in the table"
	leads := []model.Lead{
		{
			ID:        "abc12345-6789",
			Phone:     "+1234567890",
			Name:      model.StringPtr("Ann"),
			Message:   &msg,
			Status:    model.LeadStatusSent,
			CreatedAt: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{ID: "def", Phone: "+19876543210", Status: model.LeadStatusUnsent},
	}

	var buf bytes.Buffer
	formatLeadsList(&buf, leads)
	out := buf.String()
	assert.Contains(t, out, "PHONE")
	assert.Contains(t, out, "abc12345-6789")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "truncated in the table")
	assert.Contains(t, out, "unsent")
}

func TestFormatTemplates(t *testing.T) {
	templates, err := generate.Builtins()
	require.NoError(t, err)

	var buf bytes.Buffer
	formatTemplates(&buf, templates)
	assert.Contains(t, buf.String(), "launch")
	assert.Contains(t, buf.String(), "follow-up")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncate("héllo wörld!", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
