package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dataforge/internal/compiler"
	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/engine"
	"github.com/roach88/dataforge/internal/generator"
)

// Schema is a loaded and compiled schema.
type Schema struct {
	Path  string
	Value cue.Value // the raw CUE value
	Tree  *dsl.Tree
}

// LoadError represents an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // Schema read or parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // SQLite store open or query failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUnsupported = "E008" // Unsupported schema file extension

	// Schema errors
	ErrCodeSchema     = "E201" // Invalid collection or field definition
	ErrCodeCUE        = "E202" // CUE evaluation error (incomplete or conflicting values)
	ErrCodeSchemaSeed = "E203" // Invalid schema seed
	ErrCodeSchemaRoot = "E204" // Schema is not an object of collections

	// Run errors
	ErrCodeRun                = "E300" // Other run failure
	ErrCodeInvalidConfig      = "E301"
	ErrCodeUnknownGenerator   = "E302"
	ErrCodeGeneratorFailed    = "E303"
	ErrCodeInvalidReference   = "E304"
	ErrCodeUnregisteredSource = "E305"
	ErrCodeShadowNotFound     = "E306"
	ErrCodeFilteringFailed    = "E307"
	ErrCodeTypeMismatch       = "E308"
	ErrCodeCyclicDependency   = "E309"
)

// LoadSchema reads and compiles a schema file, or every CUE file of a
// directory as one package. Read failures are *LoadError; schema errors
// are the compiler.ErrorList from compiler.Compile.
func LoadSchema(path string, registry *generator.Registry) (*Schema, error) {
	v, err := compiler.Load(cuecontext.New(), path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	case errors.Is(err, compiler.ErrUnsupportedFile):
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: err.Error()}
	case errors.Is(err, compiler.ErrNoCUEFiles):
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: err.Error()}
	default:
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}

	tree, err := compiler.Compile(v, registry)
	if err != nil {
		return nil, err
	}
	return &Schema{Path: path, Value: v, Tree: tree}, nil
}

// Problem is one reported error: a code, a message and, when known, the
// schema line and field.
type Problem struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Problems converts an error from loading or running a schema into
// coded problems. A compiler.ErrorList yields one problem per entry.
func Problems(err error) []Problem {
	var (
		loadErr    *LoadError
		list       compiler.ErrorList
		compileErr *compiler.CompileError
		runErr     *engine.RuntimeError
	)
	switch {
	case errors.As(err, &loadErr):
		return []Problem{{Code: loadErr.Code, Message: loadErr.Message, Line: lineOf(loadErr.Pos)}}
	case errors.As(err, &list):
		out := make([]Problem, len(list))
		for i, e := range list {
			out[i] = compileProblem(e)
		}
		return out
	case errors.As(err, &compileErr):
		return []Problem{compileProblem(compileErr)}
	case errors.As(err, &runErr):
		field := runErr.Field
		if runErr.Collection != "" && field != "" {
			field = runErr.Collection + "." + field
		}
		return []Problem{{Code: MapRuntimeErrorCode(runErr.Code), Field: field, Message: runErr.Message}}
	default:
		return []Problem{{Code: ErrCodeGeneric, Message: err.Error()}}
	}
}

func compileProblem(e *compiler.CompileError) Problem {
	return Problem{
		Code:    MapFieldToErrorCode(e.Field),
		Field:   e.Field,
		Message: e.Message,
		Line:    lineOf(e.Pos),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeCUE
	case "seed":
		return ErrCodeSchemaSeed
	case "schema":
		return ErrCodeSchemaRoot
	default:
		return ErrCodeSchema
	}
}

// MapRuntimeErrorCode maps an engine error code to a CLI error code.
func MapRuntimeErrorCode(code engine.RuntimeErrorCode) string {
	switch code {
	case engine.ErrCodeInvalidConfig:
		return ErrCodeInvalidConfig
	case engine.ErrCodeUnknownGenerator:
		return ErrCodeUnknownGenerator
	case engine.ErrCodeGeneratorFailed:
		return ErrCodeGeneratorFailed
	case engine.ErrCodeInvalidReference:
		return ErrCodeInvalidReference
	case engine.ErrCodeUnregisteredSource:
		return ErrCodeUnregisteredSource
	case engine.ErrCodeShadowNotFound:
		return ErrCodeShadowNotFound
	case engine.ErrCodeFilteringFailed:
		return ErrCodeFilteringFailed
	case engine.ErrCodeTypeMismatch:
		return ErrCodeTypeMismatch
	case engine.ErrCodeCyclicDependency:
		return ErrCodeCyclicDependency
	default:
		return ErrCodeRun
	}
}

// lineOf extracts the line number from a token.Pos.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
