package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/parser"
	"github.com/warren2314/OSS-Checker/pkg/set"
)

// ErrNotFound is returned when the scan root does not exist or is not a directory.
var ErrNotFound = xerrors.New("scan root not found")

// Result holds the unique coordinates of one ecosystem in discovery order.
type Result struct {
	Ecosystem   ecosystem.Type
	Root        string
	Coordinates []coordinate.Coordinate
	// Skipped counts files the parser did not recognise.
	Skipped int
}

type Scanner struct {
	opts    parser.Options
	parsers map[ecosystem.Type]parser.Parser
	logger  *log.Logger
}

type Option func(*Scanner)

// WithParserOptions selects parser variants.
func WithParserOptions(opts parser.Options) Option {
	return func(s *Scanner) {
		s.opts = opts
	}
}

// WithParser overrides the parser used for p.Ecosystem().
func WithParser(p parser.Parser) Option {
	return func(s *Scanner) {
		s.parsers[p.Ecosystem()] = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		parsers: map[ecosystem.Type]parser.Parser{},
		logger:  log.WithPrefix("scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns the coordinates found for eco.
// Files the parser does not recognise are skipped; an empty result is not an error.
func Scan(ctx context.Context, root string, eco ecosystem.Type) (Result, error) {
	return New().Scan(ctx, root, eco)
}

func (s *Scanner) Scan(ctx context.Context, root string, eco ecosystem.Type) (Result, error) {
	eb := oops.With("root_dir", root, "ecosystem", eco)

	p, err := s.parser(eco)
	if err != nil {
		return Result{}, eb.Wrapf(err, "parser error")
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{}, xerrors.Errorf("%s: %w", root, ErrNotFound)
	} else if err != nil {
		return Result{}, eb.Wrapf(err, "stat error")
	} else if !info.IsDir() {
		return Result{}, xerrors.Errorf("%s is not a directory: %w", root, ErrNotFound)
	}

	found := set.NewKeyed(coordinate.Coordinate.Key)
	res := Result{Ecosystem: eco, Root: root}

	// WalkDir visits entries in lexical order, which keeps the output stable
	// for the same filesystem snapshot.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return eb.With("path", path).Wrapf(err, "walk dir error")
			}
			s.logger.Warn("Skipping unreadable path", log.FilePath(path), log.Err(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return eb.With("path", path).Wrapf(err, "relative path error")
		}

		c, err := p.Parse(parser.NewEntry(filepath.ToSlash(rel)))
		if err != nil {
			res.Skipped++
			s.logger.Debug("Skipping entry", log.FilePath(rel), log.Err(err))
			return nil
		}
		if !found.Add(c) {
			s.logger.Debug("Duplicate coordinate", log.Coordinate(c.Wire()), log.FilePath(rel))
		}
		return nil
	})
	if err != nil {
		return Result{}, eb.Wrapf(err, "file walk error")
	}

	res.Coordinates = found.Values()
	s.logger.Info("Scan completed", log.Ecosystem(eco.String()), log.DirPath(root),
		log.Int("coordinates", len(res.Coordinates)), log.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Scanner) parser(eco ecosystem.Type) (parser.Parser, error) {
	if p, ok := s.parsers[eco]; ok {
		return p, nil
	}
	return parser.For(eco, s.opts)
}
