package surface

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// fileDecls is the exported declaration index of one source file.
// Reflection later supplies authoritative types; the AST is the only
// place parameter names and declaration kinds live.
type fileDecls struct {
	pkg       string
	imports   []string
	funcs     map[string]*FuncDecl
	constants []string
}

// parseDecls indexes the exported top-level declarations of one file.
// Methods and unexported names do not participate in the surface.
func parseDecls(filename string, src []byte) (*fileDecls, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.AllErrors)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	decls := &fileDecls{
		pkg:   f.Name.Name,
		funcs: make(map[string]*FuncDecl),
	}

	for _, d := range f.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if decl.Recv != nil || !decl.Name.IsExported() {
				continue
			}
			decls.funcs[decl.Name.Name] = funcDeclOf(decl.Type)

		case *ast.GenDecl:
			switch decl.Tok {
			case token.IMPORT:
				for _, spec := range decl.Specs {
					imp, ok := spec.(*ast.ImportSpec)
					if !ok {
						continue
					}
					path, err := strconv.Unquote(imp.Path.Value)
					if err != nil {
						continue
					}
					decls.imports = append(decls.imports, path)
				}
			case token.CONST, token.VAR:
				for _, spec := range decl.Specs {
					vs, ok := spec.(*ast.ValueSpec)
					if !ok {
						continue
					}
					for _, name := range vs.Names {
						if name.IsExported() && name.Name != "_" {
							decls.constants = append(decls.constants, name.Name)
						}
					}
				}
			}
		}
	}

	return decls, nil
}

// funcDeclOf flattens a parameter list into per-parameter names.
// Grouped declarations (a, b int) yield one name per parameter;
// unnamed parameters yield empty strings.
func funcDeclOf(ft *ast.FuncType) *FuncDecl {
	decl := &FuncDecl{}
	if ft.Params == nil {
		return decl
	}
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			decl.ParamNames = append(decl.ParamNames, "")
			continue
		}
		for _, name := range field.Names {
			decl.ParamNames = append(decl.ParamNames, name.Name)
		}
	}
	if n := len(ft.Params.List); n > 0 {
		_, decl.Variadic = ft.Params.List[n-1].Type.(*ast.Ellipsis)
	}
	return decl
}
