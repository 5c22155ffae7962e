// Package narrative loads incident narratives from plain-text or HTML files.
package narrative

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// MaxBytes caps a single narrative
const MaxBytes = 1 << 20

// Narrative is one input document
type Narrative struct {
	Source string // File path, "-" for stdin, or a caller-chosen label
	Text   string
}

// Extensions recognised when walking a directory
var Extensions = map[string]bool{
	".txt":  true,
	".text": true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// Load reads a narrative from a file, or from stdin when path is "-"
func Load(path string) (Narrative, error) {
	if path == "-" {
		return LoadReader("-", os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return Narrative{}, fmt.Errorf("open narrative: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadReader(path, f)
}

// LoadReader reads a narrative. HTML input (by extension or content) is
// reduced to its visible text.
func LoadReader(source string, r io.Reader) (Narrative, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Narrative{}, fmt.Errorf("read narrative %s: %w", source, err)
	}
	if len(data) > MaxBytes {
		return Narrative{}, fmt.Errorf("narrative %s exceeds %d bytes", source, MaxBytes)
	}

	text := string(data)
	if isHTML(source, data) {
		text, err = FromHTML(text)
		if err != nil {
			return Narrative{}, fmt.Errorf("parse HTML %s: %w", source, err)
		}
	}

	return Narrative{Source: source, Text: text}, nil
}

// FromHTML returns the visible text of an HTML document, one line per block
func FromHTML(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}
	return extractVisibleText(doc), nil
}

func isHTML(source string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".html", ".htm":
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
}

func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

// Collect expands the arguments of a batch run into narratives. Directories
// contribute their recognised files (non-recursive, sorted); a "@file" argument
// names a list file with one path per line. Duplicate paths are loaded once.
func Collect(args []string) ([]Narrative, error) {
	var paths []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "@"):
			listed, err := ReadPathsFromFile(strings.TrimPrefix(arg, "@"))
			if err != nil {
				return nil, err
			}
			paths = append(paths, listed...)
		default:
			expanded, err := expand(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, expanded...)
		}
	}

	seen := make(map[string]bool, len(paths))
	narratives := make([]Narrative, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true

		n, err := Load(p)
		if err != nil {
			return nil, err
		}
		narratives = append(narratives, n)
	}
	return narratives, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !Extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ReadPathsFromFile reads narrative paths from a file (one per line).
// Blank lines and "#" comments are skipped; relative paths resolve against
// the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
