package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/generator"
)

// Load errors. Missing paths are reported with an error wrapping
// fs.ErrNotExist.
var (
	ErrUnsupportedFile = errors.New("unsupported schema file")
	ErrNoCUEFiles      = errors.New("no CUE files found")
)

// Extensions lists the schema file extensions Load reads.
var Extensions = []string{".cue", ".json", ".yaml", ".yml"}

// Load reads a schema source into ctx: a .cue, .json, .yaml or .yml
// file, or a directory whose CUE files form one package. JSON and YAML
// are read as CUE data. The returned value may still carry a CUE
// evaluation error; Compile reports it.
func Load(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, err
	}
	if info.IsDir() {
		return loadDir(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ctx.CompileBytes(data, cue.Filename(path)), nil
	case ".json":
		expr, err := cuejson.Extract(path, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("parsing JSON: %w", err)
		}
		return ctx.BuildExpr(expr, cue.Filename(path)), nil
	case ".yaml", ".yml":
		file, err := cueyaml.Extract(path, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("parsing YAML: %w", err)
		}
		return ctx.BuildFile(file), nil
	default:
		return cue.Value{}, fmt.Errorf("%w %s: want one of %v", ErrUnsupportedFile, path, Extensions)
	}
}

// LoadFile loads and compiles a schema source.
func LoadFile(ctx *cue.Context, path string, registry *generator.Registry) (*dsl.Tree, error) {
	v, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return Compile(v, registry)
}

func loadDir(ctx *cue.Context, dir string) (cue.Value, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("%w in %s", ErrNoCUEFiles, dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	return ctx.BuildInstance(inst), nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
