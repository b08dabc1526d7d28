package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/editor"
	"github.com/muesli/gitcha"
)

var (
	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}

	documentExtensions = []string{
		"*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown", "*.txt",
	}

	ignorePatterns = []string{"node_modules", ".*"}
)

// source provides readable text along with a display name.
type source struct {
	reader io.ReadCloser
	name   string
}

func (s *source) Close() error {
	return s.reader.Close()
}

// resolveSource turns the command line into a readable source: the
// clipboard, an editor buffer, stdin, a URL, a directory, or a file.
func resolveSource(arg string) (*source, error) {
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("unable to read clipboard: %w", err)
		}
		return &source{io.NopCloser(strings.NewReader(text)), "clipboard"}, nil
	}

	if editInput {
		return composeSource()
	}

	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin, name: "stdin"}, nil
	}
	if arg == "" {
		if yes, err := stdinIsPipe(); err != nil {
			return nil, err
		} else if yes {
			return &source{reader: os.Stdin, name: "stdin"}, nil
		}
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "" {
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
			}
			// consumer of the source is responsible for closing the ReadCloser.
			resp, err := http.Get(u.String()) //nolint: noctx,bodyclose
			if err != nil {
				return nil, fmt.Errorf("unable to get url: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
			}
			return &source{resp.Body, u.String()}, nil
		}
	}

	// a directory:
	if arg == "" {
		// use the current working dir if no argument was supplied
		arg = "."
	}
	if st, err := os.Stat(arg); err == nil && st.IsDir() {
		return sourceFromDir(arg)
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

// sourceFromDir picks a document out of a directory, preferring a
// README over whatever turns up first.
func sourceFromDir(dir string) (*source, error) {
	ch, err := gitcha.FindFilesExcept(dir, documentExtensions, ignorePatterns)
	if err != nil {
		return nil, fmt.Errorf("unable to search %s: %w", dir, err)
	}

	var first, readme string
	for res := range ch {
		if first == "" {
			first = res.Path
		}
		if readme == "" && isReadme(res.Path) {
			readme = res.Path
		}
	}

	pick := readme
	if pick == "" {
		pick = first
	}
	if pick == "" {
		return nil, errors.New("missing readable source")
	}

	r, err := os.Open(pick)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, _ := filepath.Abs(pick)
	if u == "" {
		u = pick
	}
	return &source{r, u}, nil
}

func isReadme(path string) bool {
	base := filepath.Base(path)
	for _, v := range readmeNames {
		if strings.EqualFold(base, v) {
			return true
		}
	}
	return false
}

// composeSource opens EDITOR on a scratch file and reads back whatever
// got written there.
func composeSource() (*source, error) {
	f, err := os.CreateTemp("", "readable-*.md")
	if err != nil {
		return nil, fmt.Errorf("unable to create scratch file: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	c, err := editor.Cmd("readable", path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("unable to set up editor: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("unable to run editor: %w", err)
	}

	r, err := os.Open(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("unable to read scratch file: %w", err)
	}
	return &source{scratchFile{r}, "editor"}, nil
}

// scratchFile removes its backing file once it has been read.
type scratchFile struct {
	*os.File
}

func (s scratchFile) Close() error {
	err := s.File.Close()
	_ = os.Remove(s.File.Name())
	return err
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}
