package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed document.cue
var documentCUE string

// shapeChecker holds the compiled #Document definition together with the
// context that built it. Values from different CUE contexts cannot be
// unified, so the same context must build the incoming documents too.
type shapeChecker struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

var shapeOnce = sync.OnceValues(func() (*shapeChecker, error) {
	ctx := cuecontext.New()
	compiled := ctx.CompileString(documentCUE, cue.Filename("document.cue"))
	if err := compiled.Err(); err != nil {
		return nil, fmt.Errorf("compile document.cue: %w", err)
	}
	def := compiled.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Document: %w", err)
	}
	return &shapeChecker{ctx: ctx, def: def}, nil
})

// ValidateShape checks raw JSON against the embedded CUE definition of a
// schema document before any semantic validation runs.
//
// This is the cheap structural gate: keys exist and hold the right kind of
// value. It accepts both the flat and the dynamic shape. Semantic checks
// (confidence ranges, references, cycles) are Validate's job and assume the
// shape already passed.
func ValidateShape(data []byte) error {
	checker, err := shapeOnce()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("schema.json", data)
	if err != nil {
		return fmt.Errorf("parse schema document: %w", err)
	}

	checker.mu.Lock()
	defer checker.mu.Unlock()

	doc := checker.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build schema document: %w", err)
	}

	if err := checker.def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema shape: %w", err)
	}
	return nil
}
