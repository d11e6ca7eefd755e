package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractService_PlainTextHeadings(t *testing.T) {
	content := `Our Services

We offer AI-powered telephone calling agents.
Integration with PBX systems is supported.

Pricing Plans

The starter plan cost is 99 dollars per month.
`
	path := writeTempFile(t, "doc.txt", content)
	svc := NewExtractService(2000, zap.NewNop())

	sections, err := svc.ExtractSections(context.Background(), path, ".txt")
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "Our Services", sections[0].Title)
	assert.Contains(t, sections[0].Text, "telephone calling agents")
	assert.Equal(t, "Pricing Plans", sections[1].Title)
	assert.Contains(t, sections[1].Text, "99 dollars")
}

func TestExtractService_PreambleBecomesIntroduction(t *testing.T) {
	content := `This document describes the product in detail before any heading.

Features

Automated calling and multilingual synthesis.
`
	path := writeTempFile(t, "doc.txt", content)
	svc := NewExtractService(2000, zap.NewNop())

	sections, err := svc.ExtractSections(context.Background(), path, ".txt")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Introduction", sections[0].Title)
	assert.Equal(t, "Features", sections[1].Title)
}

func TestExtractService_CSV(t *testing.T) {
	content := "plan,price\nstarter,99\nbusiness,299\n"
	path := writeTempFile(t, "data.csv", content)
	svc := NewExtractService(2000, zap.NewNop())

	sections, err := svc.ExtractSections(context.Background(), path, ".csv")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Data", sections[0].Title)
	assert.Contains(t, sections[0].Text, "starter, 99")
	assert.Contains(t, sections[0].Text, "business, 299")
}

func TestExtractService_UnsupportedExtension(t *testing.T) {
	svc := NewExtractService(2000, zap.NewNop())
	_, err := svc.ExtractSections(context.Background(), "whatever.bin", ".bin")
	assert.Error(t, err)
}

func TestExtractService_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.txt", "   \n\n  ")
	svc := NewExtractService(2000, zap.NewNop())

	_, err := svc.ExtractSections(context.Background(), path, ".txt")
	assert.Error(t, err)
}

func TestExtractService_OversizedSectionIsBounded(t *testing.T) {
	paragraph := strings.Repeat("word ", 40) // ~200 chars
	content := "Long Section\n\n" +
		paragraph + "\n" + paragraph + "\n" + paragraph + "\n"
	path := writeTempFile(t, "long.txt", content)
	svc := NewExtractService(250, zap.NewNop())

	sections, err := svc.ExtractSections(context.Background(), path, ".txt")
	require.NoError(t, err)
	assert.Greater(t, len(sections), 1)
	for _, sec := range sections {
		assert.Equal(t, "Long Section", sec.Title)
		assert.LessOrEqual(t, len(sec.Text), 250)
		assert.NotEmpty(t, sec.Text)
	}
}

func TestExtractService_HardCutKeepsRunesIntact(t *testing.T) {
	// One paragraph with no break points, multibyte characters throughout.
	content := "Heading\n\n" + strings.Repeat("日本語テキスト", 100)
	path := writeTempFile(t, "runes.txt", content)
	svc := NewExtractService(100, zap.NewNop())

	sections, err := svc.ExtractSections(context.Background(), path, ".txt")
	require.NoError(t, err)
	assert.Greater(t, len(sections), 1)
	for _, sec := range sections {
		assert.True(t, utf8.ValidString(sec.Text), "hard cut must not split a rune")
		assert.LessOrEqual(t, len(sec.Text), 100)
	}
}

func TestIsHeading(t *testing.T) {
	assert.True(t, isHeading("Our Services"))
	assert.True(t, isHeading("Pricing"))
	assert.False(t, isHeading("This sentence ends with a period."))
	assert.False(t, isHeading("- a bullet item"))
	assert.False(t, isHeading(strings.Repeat("long ", 20)))
	assert.False(t, isHeading("one two three four five six seven eight nine"))
}
