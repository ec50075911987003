package oberon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func NameNodeFromPath(path string) (NameNode, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseFile(path, source)
	if err != nil {
		return nil, err
	}
	return NameNodeFromModule(m), nil
}

// NameNodeFromModule builds the tree of names declared by m.
//
//	MODULE M;
//	CONST n = 1;
//	PROCEDURE P(x: INTEGER);
//	  VAR y: INTEGER;
//	...
//
//	M
//	| \
//	n  P
//	   | \
//	   x  y
func NameNodeFromModule(m *Module) NameNode {
	node := &ModuleNameNode{
		Naming: m.Name.Text(),
		Path:   m.pos().Filename,
	}
	node.children = declNameNodes(m.Decls)
	return node
}

func declNameNodes(d *Declarations) []NameNode {
	if d == nil {
		return nil
	}
	children := make([]NameNode, 0)
	for _, decl := range d.Consts {
		children = append(children, &DeclNameNode{Naming: decl.Name.Text(), Kind: ConstantKind})
	}
	for _, decl := range d.Types {
		children = append(children, &DeclNameNode{Naming: decl.Name.Text(), Kind: TypeNameKind})
	}
	for _, decl := range d.Vars {
		for _, name := range decl.Names {
			children = append(children, &DeclNameNode{Naming: name.Text(), Kind: VariableKind})
		}
	}
	for _, decl := range d.Procs {
		proc := &ProcedureNameNode{Naming: decl.Name.Text()}
		for _, section := range decl.Params {
			for _, name := range section.Names {
				param := name.Text()
				if section.Var {
					param = "VAR " + param
				}
				proc.Params = append(proc.Params, param)
				proc.children = append(proc.children, &DeclNameNode{Naming: name.Text(), Kind: VariableKind})
			}
		}
		proc.children = append(proc.children, declNameNodes(decl.Decls)...)
		children = append(children, proc)
	}
	return children
}

type NameNode interface {
	Name() string
	Children() []NameNode
}

type ModuleNameNode struct {
	Naming   string
	children []NameNode
	Path     string
}

type ProcedureNameNode struct {
	Naming   string
	children []NameNode
	Params   []string
}

type DeclNameNode struct {
	Naming string
	Kind   Kind
}

func (m *ModuleNameNode) Name() string {
	return m.Naming
}
func (p *ProcedureNameNode) Name() string {
	return p.Naming
}
func (d *DeclNameNode) Name() string {
	return d.Naming
}

func (m *ModuleNameNode) Children() []NameNode {
	return m.children
}
func (p *ProcedureNameNode) Children() []NameNode {
	return p.children
}
func (d *DeclNameNode) Children() []NameNode {
	return nil
}

// WriteOutline prints node and its children, one per line, indented by
// depth.
func WriteOutline(w io.Writer, node NameNode) error {
	return writeOutline(w, node, 0)
}

func writeOutline(w io.Writer, node NameNode, depth int) error {
	var label string
	switch nd := node.(type) {
	case *ModuleNameNode:
		label = "MODULE " + nd.Naming
	case *ProcedureNameNode:
		label = fmt.Sprintf("PROCEDURE %s(%s)", nd.Naming, strings.Join(nd.Params, ", "))
	case *DeclNameNode:
		label = fmt.Sprintf("%s %s", nd.Kind, nd.Naming)
	default:
		panic("unreachable")
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label); err != nil {
		return err
	}
	for _, child := range node.Children() {
		if err := writeOutline(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func moduleName(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(path)
	return strings.TrimSuffix(name, ext)
}

const OBERON_EXTENSION string = ".mod"

// outputPath names the file the module at path is emitted to.
func outputPath(path, ext string) string {
	dir := filepath.Dir(path)
	return filepath.Join(dir, moduleName(path)+ext)
}
