package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"factlint/internal/ir"
	"factlint/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// Language adapts one tree-sitter grammar to the Syntax Model.
type Language interface {
	Name() string
	Grammar() *sitter.Language
	Extensions() []string
	Convert(root *sitter.Node, src []byte) *syntax.Node
}

// Frontend parses source text into syntax units.
type Frontend struct {
	lang Language
}

// New creates a frontend for the named language.
func New(lang string) (*Frontend, error) {
	var l Language
	switch strings.ToLower(lang) {
	case "java":
		l = &Java{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Frontend{lang: l}, nil
}

// Language returns the adapter in use.
func (f *Frontend) Language() Language { return f.lang }

// Accepts reports whether path has one of the language's file extensions.
func (f *Frontend) Accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range f.lang.Extensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile reads and parses a single file. Failures are reported through
// Unit.Err as an *ir.ParseFault; the returned unit is never nil.
func (f *Frontend) ParseFile(ctx context.Context, path string) *syntax.Unit {
	src, err := os.ReadFile(path)
	if err != nil {
		return &syntax.Unit{ID: path, Err: &ir.ParseFault{Unit: path, Err: err}}
	}
	return f.ParseSource(ctx, path, src)
}

// ParseSource parses src under the given unit identifier.
func (f *Frontend) ParseSource(ctx context.Context, id string, src []byte) *syntax.Unit {
	u := &syntax.Unit{ID: id, Text: src}

	parser := sitter.NewParser()
	parser.SetLanguage(f.lang.Grammar())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		u.Err = &ir.ParseFault{Unit: id, Err: err}
		return u
	}

	root := tree.RootNode()
	if root == nil {
		u.Err = &ir.ParseFault{Unit: id, Err: errors.New("parser returned no syntax tree")}
		return u
	}

	converted := f.lang.Convert(root, src)
	if len(converted.Children) == 0 && root.HasError() {
		u.Err = &ir.ParseFault{Unit: id, Err: errors.New("no recognizable declarations")}
		return u
	}
	u.Root = converted
	return u
}

// ParseAll parses paths with up to workers concurrent parsers. Units come back
// in the order of paths; per-file failures are carried on each unit.
func (f *Frontend) ParseAll(ctx context.Context, paths []string, workers int) ([]*syntax.Unit, error) {
	units := make([]*syntax.Unit, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			units[i] = f.ParseFile(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}
