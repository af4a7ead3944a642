package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// ReadArticles loads articles from a path. A file may hold a single
// article object or an array; a directory is read as all of its .json
// files in name order.
func ReadArticles(path string) ([]*model.Article, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return ReadArticlesFile(path)
	}

	matches, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s contains no .json files", path)
	}
	sort.Strings(matches)

	var articles []*model.Article
	for _, file := range matches {
		batch, err := ReadArticlesFile(file)
		if err != nil {
			return nil, err
		}
		articles = append(articles, batch...)
	}
	return articles, nil
}

// ReadArticlesFile loads articles from a JSON file holding either a
// single article object or an array of them.
func ReadArticlesFile(path string) ([]*model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}

	if strings.HasPrefix(trimmed, "[") {
		var articles []*model.Article
		if err := json.Unmarshal(data, &articles); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return articles, nil
	}

	var article model.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []*model.Article{&article}, nil
}
