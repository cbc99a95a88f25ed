package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/augurhq/augur/pkg/models"
)

// Parser wraps tree-sitter for multi-language parsing.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language models.Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// Parse parses source code for a file path. The grammar is chosen from the
// extension so JSX/TSX dialects get the tsx grammar.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	lang := models.DetectLanguage(path)
	if lang == models.LangUnknown {
		return nil, fmt.Errorf("unsupported language for file: %s", path)
	}

	tsLang := grammarFor(lang, path)
	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// grammarFor picks the tree-sitter grammar for a language and file path.
func grammarFor(lang models.Language, path string) *sitter.Language {
	ext := strings.ToLower(filepath.Ext(path))
	switch lang {
	case models.LangPython:
		return python.GetLanguage()
	case models.LangTypeScript:
		if ext == ".tsx" {
			return tsx.GetLanguage()
		}
		return typescript.GetLanguage()
	case models.LangJavaScript:
		if ext == ".jsx" {
			return tsx.GetLanguage()
		}
		return javascript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}
	if !visitor(node, source) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}
	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}
	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// FunctionNode represents a parsed function.
type FunctionNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Body      *sitter.Node
	Node      *sitter.Node
}

// functionNodeTypes returns the AST node types for functions in each language.
func functionNodeTypes(lang models.Language) []string {
	switch lang {
	case models.LangPython:
		return []string{"function_definition"}
	case models.LangTypeScript, models.LangJavaScript:
		return []string{"function_declaration", "function", "arrow_function", "method_definition"}
	default:
		return nil
	}
}

// GetFunctions extracts all function definitions from parsed code.
func GetFunctions(result *ParseResult) []FunctionNode {
	var functions []FunctionNode
	root := result.Tree.RootNode()

	funcTypes := functionNodeTypes(result.Language)

	Walk(root, result.Source, func(node *sitter.Node, source []byte) bool {
		for _, ft := range funcTypes {
			if node.Type() == ft {
				functions = append(functions, extractFunction(node, source))
				break
			}
		}
		return true
	})

	return functions
}

// extractFunction extracts function details from an AST node.
func extractFunction(node *sitter.Node, source []byte) FunctionNode {
	fn := FunctionNode{
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		Node:      node,
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		fn.Name = GetNodeText(nameNode, source)
	} else if node.Type() == "arrow_function" {
		// Arrow functions take their name from the enclosing declarator.
		if parent := node.Parent(); parent != nil && parent.Type() == "variable_declarator" {
			fn.Name = GetNodeText(parent.ChildByFieldName("name"), source)
		}
	}

	fn.Body = node.ChildByFieldName("body")
	return fn
}

// ClassNode represents a parsed class.
type ClassNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Node      *sitter.Node
}

// classNodeTypes returns the AST node types for classes in each language.
func classNodeTypes(lang models.Language) []string {
	switch lang {
	case models.LangPython:
		return []string{"class_definition"}
	case models.LangTypeScript, models.LangJavaScript:
		return []string{"class_declaration", "class"}
	default:
		return nil
	}
}

// GetClasses extracts all class definitions from parsed code.
func GetClasses(result *ParseResult) []ClassNode {
	var classes []ClassNode
	root := result.Tree.RootNode()

	classTypes := classNodeTypes(result.Language)

	Walk(root, result.Source, func(node *sitter.Node, source []byte) bool {
		for _, ct := range classTypes {
			if node.Type() == ct {
				cls := ClassNode{
					StartLine: node.StartPoint().Row + 1,
					EndLine:   node.EndPoint().Row + 1,
					Node:      node,
				}
				if nameNode := node.ChildByFieldName("name"); nameNode != nil {
					cls.Name = GetNodeText(nameNode, source)
				}
				classes = append(classes, cls)
				return false
			}
		}
		return true
	})

	return classes
}

// HasDocstring reports whether a Python function or class body opens with a
// string expression.
func HasDocstring(body *sitter.Node, source []byte) bool {
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	t := first.NamedChild(0).Type()
	return t == "string" || t == "concatenated_string"
}
