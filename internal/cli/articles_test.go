package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestReadArticlesFileSingleObject(t *testing.T) {
	path := writeTempFile(t, "article.json", `{
		"id": "a1",
		"source_domain": "example.com",
		"title": "Title",
		"text": "Body text.",
		"published_at": "2026-03-01T12:00:00Z"
	}`)

	articles, err := ReadArticlesFile(path)
	if err != nil {
		t.Fatalf("ReadArticlesFile: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].ID != "a1" || articles[0].SourceDomain != "example.com" {
		t.Errorf("article = %+v", articles[0])
	}
}

func TestReadArticlesFileArray(t *testing.T) {
	path := writeTempFile(t, "articles.json", `[
		{"id": "a1", "source_domain": "example.com", "text": "one"},
		{"id": "a2", "source_domain": "example.org", "text": "two"}
	]`)

	articles, err := ReadArticlesFile(path)
	if err != nil {
		t.Fatalf("ReadArticlesFile: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if articles[1].ID != "a2" {
		t.Errorf("second article = %+v", articles[1])
	}
}

func TestReadArticlesFileEmpty(t *testing.T) {
	path := writeTempFile(t, "empty.json", "   \n")
	if _, err := ReadArticlesFile(path); err == nil {
		t.Error("accepted an empty file")
	}
}

func TestReadArticlesFileMalformed(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{"id": `)
	if _, err := ReadArticlesFile(path); err == nil {
		t.Error("accepted malformed JSON")
	}
}

func TestReadArticlesDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.json": `{"id": "a2", "source_domain": "example.org", "text": "two"}`,
		"a.json": `[{"id": "a1", "source_domain": "example.com", "text": "one"}]`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	articles, err := ReadArticles(dir)
	if err != nil {
		t.Fatalf("ReadArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	// Files are read in name order
	if articles[0].ID != "a1" || articles[1].ID != "a2" {
		t.Errorf("order = %s, %s; want a1, a2", articles[0].ID, articles[1].ID)
	}
}

func TestReadArticlesEmptyDirectory(t *testing.T) {
	if _, err := ReadArticles(t.TempDir()); err == nil {
		t.Error("accepted a directory with no .json files")
	}
}

func TestReadArticlesFileMissing(t *testing.T) {
	if _, err := ReadArticlesFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("accepted a missing file")
	}
}
