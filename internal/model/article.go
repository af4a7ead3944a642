package model

import (
	"fmt"
	"strings"
	"time"
)

// Article is one inbound unit of work, delivered by an external transport
type Article struct {
	ID           string    `json:"id"`
	SourceDomain string    `json:"source_domain"`
	Title        string    `json:"title,omitempty"`
	Text         string    `json:"text"`
	PublishedAt  time.Time `json:"published_at"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Validate checks the fields the pipeline cannot work without
func (a *Article) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("article missing id")
	}
	if a.SourceDomain == "" {
		return fmt.Errorf("article %s missing source_domain", a.ID)
	}
	if strings.TrimSpace(a.Text) == "" && strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("article %s has no text or title", a.ID)
	}
	return nil
}

// FullText combines title and body into the text handed to extraction
func (a *Article) FullText() string {
	title := strings.TrimSpace(a.Title)
	body := strings.TrimSpace(a.Text)
	if title == "" {
		return body
	}
	if body == "" {
		return title
	}
	return title + "\n\n" + body
}
