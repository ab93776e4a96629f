// Package scanner discovers client-boundary modules.
//
// A module is a client boundary when its first statement is the
// "use client" directive. Sources are checked for syntax errors with esbuild,
// then the original bytes are tokenized with tdewolff's JS lexer. Only the
// first token after comments and whitespace is inspected, so the directive
// is ignored inside comments, strings, functions or after other statements,
// including TypeScript-only ones such as type aliases.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/walk"
)

// Directive marks a module as a client boundary.
const Directive = "use client"

// Entry is a client boundary with its logical bundle name.
type Entry struct {
	Name string
	Path string
}

// NameEntries assigns the logical names rsc0, rsc1, ... in the order of
// paths.
func NameEntries(paths []string) []Entry {
	entries := make([]Entry, len(paths))
	for i, path := range paths {
		entries[i] = Entry{
			Name: fmt.Sprintf("rsc%d", i),
			Path: path,
		}
	}
	return entries
}

// ClientEntryScanner walks a source tree looking for client boundaries.
type ClientEntryScanner struct {
	fs     afero.Fs
	logger logging.Logger
	skip   walk.SkipFunc
}

// Option configures a ClientEntryScanner.
type Option func(*ClientEntryScanner)

// WithSkip prunes directories during the walk.
func WithSkip(skip walk.SkipFunc) Option {
	return func(s *ClientEntryScanner) {
		s.skip = skip
	}
}

// WithLogger sets the scanner's logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *ClientEntryScanner) {
		s.logger = logger.WithComponent("scanner")
	}
}

// NewClientEntryScanner creates a scanner reading from fsys.
func NewClientEntryScanner(fsys afero.Fs, opts ...Option) *ClientEntryScanner {
	s := &ClientEntryScanner{
		fs:     fsys,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the absolute paths of every client boundary under root,
// sorted lexically. The first unreadable or unparsable source aborts the
// scan.
func (s *ClientEntryScanner) Scan(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root %q: %w", root, err)
	}

	var found []string

	err = walk.Files(s.fs, absRoot, s.skip, func(path string, info os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !IsSourceFile(path) {
			return nil
		}

		src, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return builderrors.NewIOError("READ_FAILED", "failed to read source file", err).
				WithLocation(path, 0, 0)
		}

		ok, err := IsClientBoundary(path, src)
		if err != nil {
			return err
		}

		if ok {
			s.logger.Debug(ctx, "Found client boundary", "path", path)
			found = append(found, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// IsClientBoundary reports whether the first statement of src is the client
// directive. The loader is picked from path's extension.
func IsClientBoundary(path string, src []byte) (bool, error) {
	loader, ok := LoaderFor(path)
	if !ok {
		loader = api.LoaderJS
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:        loader,
		Sourcefile:    path,
		Target:        api.ESNext,
		LegalComments: api.LegalCommentsNone,
		LogLevel:      api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return false, builderrors.FromMessages(builderrors.ErrorTypeParse, "PARSE_FAILED", result.Errors)
	}

	return FirstDirective(src) == Directive, nil
}

// FirstDirective returns the value of the string literal that opens src as a
// statement of its own, or "" when src starts with anything else. Only
// whitespace, comments, a byte order mark and a hashbang line may precede
// it. Escapes are not decoded: a directive only counts in its literal
// spelling.
func FirstDirective(src []byte) string {
	src = bytes.TrimPrefix(src, []byte("\uFEFF"))
	if bytes.HasPrefix(src, []byte("#!")) {
		if i := bytes.IndexAny(src, "\r\n"); i >= 0 {
			src = src[i:]
		} else {
			return ""
		}
	}

	l := js.NewLexer(parse.NewInputBytes(src))

	tt, data, _ := nextSignificant(l)
	if tt != js.StringToken {
		return ""
	}
	value := unquote(data)

	tt, _, newline := nextSignificant(l)
	switch {
	case tt == js.SemicolonToken:
		return value
	case tt == js.ErrorToken:
		if l.Err() == io.EOF {
			return value
		}
		return ""
	case newline && !continuesExpression(tt):
		return value
	}
	return ""
}

// nextSignificant skips whitespace and comments. newline reports whether a
// line terminator was skipped on the way.
func nextSignificant(l *js.Lexer) (tt js.TokenType, data []byte, newline bool) {
	for {
		tt, data = l.Next()
		switch tt {
		case js.WhitespaceToken, js.CommentToken:
		case js.LineTerminatorToken, js.CommentLineTerminatorToken:
			newline = true
		default:
			return tt, data, newline
		}
	}
}

// continuesExpression reports whether a token on the next line extends the
// string literal into a larger expression instead of starting a new
// statement.
func continuesExpression(tt js.TokenType) bool {
	switch tt {
	case js.NotToken, js.BitNotToken, js.IncrToken, js.DecrToken:
		return false
	case js.OpenParenToken, js.OpenBracketToken, js.DotToken, js.CommaToken,
		js.QuestionToken, js.ArrowToken, js.TemplateToken, js.TemplateStartToken,
		js.InToken, js.InstanceofToken:
		return true
	}
	return js.IsOperator(tt)
}

func unquote(raw []byte) string {
	if n := len(raw); n >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[n-1] == raw[0] {
		return string(raw[1 : n-1])
	}
	return string(raw)
}
