package surface

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"paritycheck/internal/logging"
)

// YaegiLoader interprets a directory of Go source files as one package
// and exposes its exported symbols as live values. Interpretation is
// sandboxed: only an allowlisted slice of the standard library may be
// imported, so loading a module cannot reach the filesystem, network,
// or subprocesses.
type YaegiLoader struct {
	allowedImports map[string]bool
}

// NewYaegiLoader creates a loader with the default import allowlist.
func NewYaegiLoader() *YaegiLoader {
	return &YaegiLoader{
		allowedImports: map[string]bool{
			"bytes":           true,
			"container/heap":  true,
			"container/list":  true,
			"encoding/base64": true,
			"encoding/hex":    true,
			"encoding/json":   true,
			"errors":          true,
			"fmt":             true,
			"math":            true,
			"math/bits":       true,
			"path":            true,
			"path/filepath":   true,
			"regexp":          true,
			"sort":            true,
			"strconv":         true,
			"strings":         true,
			"time":            true,
			"unicode":         true,
			"unicode/utf8":    true,

			// Blocked: os, os/exec, net, net/http, syscall, unsafe,
			// plugin, runtime/debug. Modules that need them cannot be
			// validated in-process.
		},
	}
}

// Load reads every non-test .go file under dir, evaluates them in a
// fresh interpreter, and fetches each exported symbol. All failures
// here are import failures; per-symbol evaluation problems degrade the
// symbol to existence-only instead of failing the load.
func (l *YaegiLoader) Load(ctx context.Context, dir string) (*Surface, error) {
	log := logging.Load()
	timer := logging.StartTimer(logging.CategoryLoad, "load "+dir)
	defer timer.Stop()

	files, err := moduleFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}

	pkg, funcs, constants, err := l.indexFiles(files)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("%w: loading stdlib symbols: %v", ErrImport, err)
	}
	if err := evalAll(ctx, i, files); err != nil {
		return nil, err
	}

	symbols := make([]Symbol, 0, len(funcs)+len(constants))
	for _, name := range sortedKeys(funcs) {
		sym := Symbol{Name: name, Kind: KindFunction, Decl: funcs[name]}
		if rv, err := i.Eval(pkg + "." + name); err != nil {
			log.Warn("function not evaluable, checking existence only",
				zap.String("module", dir), zap.String("symbol", name), zap.Error(err))
		} else {
			sym.Value = rv
		}
		symbols = append(symbols, sym)
	}
	for _, name := range constants {
		rv, err := i.Eval(pkg + "." + name)
		if err != nil {
			log.Warn("constant not evaluable, checking existence only",
				zap.String("module", dir), zap.String("symbol", name), zap.Error(err))
			symbols = append(symbols, Symbol{Name: name, Kind: KindConstant})
			continue
		}
		// A package-level var holding a closure is callable surface.
		if rv.IsValid() && rv.Kind() == reflect.Func {
			symbols = append(symbols, Symbol{Name: name, Kind: KindFunction, Value: rv, Decl: &FuncDecl{}})
			continue
		}
		symbols = append(symbols, Symbol{Name: name, Kind: KindConstant, Value: rv})
	}

	log.Info("module loaded",
		zap.String("module", dir),
		zap.String("package", pkg),
		zap.Int("functions", len(funcs)),
		zap.Int("constants", len(constants)))
	return New(dir, symbols), nil
}

type sourceFile struct {
	name string
	src  string
}

// moduleFiles lists the package's source files in name order. Test
// files and hidden files are not part of the surface.
func moduleFiles(dir string) ([]sourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v", dir, err)
	}

	var files []sourceFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %v", name, err)
		}
		files = append(files, sourceFile{name: name, src: string(src)})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go source files in %s", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// indexFiles parses every file, enforces the import allowlist, and
// merges the exported declaration indexes.
func (l *YaegiLoader) indexFiles(files []sourceFile) (pkg string, funcs map[string]*FuncDecl, constants []string, err error) {
	funcs = make(map[string]*FuncDecl)
	seenConst := make(map[string]bool)
	var forbidden []string

	for _, f := range files {
		decls, perr := parseDecls(f.name, []byte(f.src))
		if perr != nil {
			return "", nil, nil, fmt.Errorf("%w: %v", ErrImport, perr)
		}
		if pkg == "" {
			pkg = decls.pkg
		} else if decls.pkg != pkg {
			return "", nil, nil, fmt.Errorf("%w: conflicting package names %q and %q", ErrImport, pkg, decls.pkg)
		}
		for _, imp := range decls.imports {
			if !l.allowedImports[imp] {
				forbidden = append(forbidden, imp)
			}
		}
		for name, decl := range decls.funcs {
			funcs[name] = decl
		}
		for _, name := range decls.constants {
			if !seenConst[name] {
				seenConst[name] = true
				constants = append(constants, name)
			}
		}
	}

	if len(forbidden) > 0 {
		sort.Strings(forbidden)
		return "", nil, nil, fmt.Errorf("%w: forbidden imports detected: %v", ErrImport, forbidden)
	}
	sort.Strings(constants)
	return pkg, funcs, constants, nil
}

// evalAll evaluates the files with a bounded multi-pass retry so that
// declarations referring to later files resolve regardless of file
// order. A pass that makes no progress means a real evaluation error.
func evalAll(ctx context.Context, i *interp.Interpreter, files []sourceFile) error {
	pending := files
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrImport, err)
		}
		var failed []sourceFile
		var lastName string
		var lastErr error
		for _, f := range pending {
			if _, err := i.Eval(f.src); err != nil {
				failed = append(failed, f)
				lastName, lastErr = f.name, err
			}
		}
		if len(failed) == len(pending) {
			return fmt.Errorf("%w: evaluating %s: %v", ErrImport, lastName, lastErr)
		}
		pending = failed
	}
	return nil
}

func sortedKeys(m map[string]*FuncDecl) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
