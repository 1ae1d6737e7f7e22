// Package parser reads and writes note files: YAML frontmatter carrying the
// card geometry and connector customisation, followed by a Markdown body.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
)

const delim = "---"

// ErrNoFrontmatter is returned for files that do not start with a
// frontmatter block.
var ErrNoFrontmatter = errors.New("parser: missing frontmatter")

// Result holds the output of parsing a note file.
type Result struct {
	Note *models.Note
	// LineErr is set when the stored connection line failed validation and
	// was dropped. The note is otherwise usable.
	LineErr error
}

type frontmatter struct {
	ID             string         `yaml:"id"`
	Date           models.Date    `yaml:"date"`
	Title          string         `yaml:"title,omitempty"`
	Image          string         `yaml:"image,omitempty"`
	Position       geometry.Point `yaml:"position"`
	Size           geometry.Size  `yaml:"size"`
	Created        time.Time      `yaml:"created"`
	Updated        time.Time      `yaml:"updated"`
	ConnectionLine yaml.Node      `yaml:"connectionLine,omitempty"`
}

type encodedFrontmatter struct {
	ID             string                 `yaml:"id"`
	Date           models.Date            `yaml:"date"`
	Title          string                 `yaml:"title,omitempty"`
	Image          string                 `yaml:"image,omitempty"`
	Position       geometry.Point         `yaml:"position"`
	Size           geometry.Size          `yaml:"size"`
	Created        time.Time              `yaml:"created"`
	Updated        time.Time              `yaml:"updated"`
	ConnectionLine *models.ConnectionLine `yaml:"connectionLine,omitempty"`
}

// Parse decodes a note file.
func Parse(data []byte) (*Result, error) {
	block, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, fmt.Errorf("parser: frontmatter: %w", err)
	}
	if fm.ID == "" {
		return nil, fmt.Errorf("parser: frontmatter: id is required")
	}

	note := &models.Note{
		ID:        fm.ID,
		Date:      fm.Date,
		Title:     deriveTitle(fm.Title, body),
		Body:      body,
		Image:     fm.Image,
		Position:  fm.Position,
		Size:      fm.Size,
		CreatedAt: fm.Created,
		UpdatedAt: fm.Updated,
	}

	res := &Result{Note: note}
	if fm.ConnectionLine.Kind != 0 {
		line, lineErr := DecodeConnectionLine(&fm.ConnectionLine)
		if lineErr != nil {
			res.LineErr = lineErr
		} else {
			note.ConnectionLine = line
		}
	}
	return res, nil
}

// Encode renders a note as a file with frontmatter.
func Encode(n *models.Note) ([]byte, error) {
	fm := encodedFrontmatter{
		ID:             n.ID,
		Date:           n.Date,
		Title:          n.Title,
		Image:          n.Image,
		Position:       n.Position,
		Size:           n.Size,
		Created:        n.CreatedAt,
		Updated:        n.UpdatedAt,
		ConnectionLine: n.ConnectionLine,
	}
	block, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(block)
	buf.WriteString(delim + "\n")
	buf.WriteString(n.Body)
	return buf.Bytes(), nil
}

// splitFrontmatter separates the YAML block between the leading ---
// delimiters from the Markdown body.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", ErrNoFrontmatter
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", ErrNoFrontmatter
	}

	block := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")
	return block, body, nil
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(title, body string) string {
	if title != "" {
		return title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
