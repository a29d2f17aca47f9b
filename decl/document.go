// Package decl loads rewriting setups from YAML declaration files.
//
// A file declares sorts, subsort edges, constructors, variables and rules, plus an
// optional list of terms to normalize. Constructor and variable names are local
// identifiers used by the term syntax of patterns, images and terms:
//
//	id              a leaf constructor, a variable, or a free constructor without arguments
//	id(t1, ..., tn) a free constructor
//	id[lit]         a literal constructor, lit being an int, a float, a quoted string,
//	                true or false
//
// Guards are Go function literals interpreted with yaegi. See Guard.
package decl

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/cottand/hrewrite/hrwerr"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Document struct {
	Sorts        []string     `yaml:"sorts" validate:"required,min=1,unique,dive,identifier"`
	Subsorts     []Subsort    `yaml:"subsorts" validate:"dive"`
	Constructors Constructors `yaml:"constructors" validate:"required,min=1,dive"`
	Variables    Variables    `yaml:"variables" validate:"dive"`
	Rules        []Rule       `yaml:"rules" validate:"dive"`
	Terms        []string     `yaml:"terms" validate:"dive,required"`

	// StrictSorting refuses rules whose image may change the sort of the rewritten term
	StrictSorting bool `yaml:"strict_sorting"`
}

// Subsort declares Child ≤ Parent
type Subsort struct {
	Parent string `yaml:"parent" validate:"required,identifier"`
	Child  string `yaml:"child" validate:"required,identifier"`
}

type Constructor struct {
	// ID is the mapping key the constructor was declared under
	ID   string `yaml:"-" validate:"identifier"`
	Sort string `yaml:"sort" validate:"required,identifier"`
	Kind string `yaml:"kind" validate:"required,oneof=literal leaf free"`
	// Domain is only meaningful for free constructors
	Domain string `yaml:"domain" validate:"required_if=Kind free,excluded_unless=Kind free"`
	// Name is the display name, defaulting to ID
	Name string `yaml:"name"`
}

func (c Constructor) DisplayName() string {
	if c.Name == "" {
		return c.ID
	}
	return c.Name
}

// Constructors keeps constructors in the order they appear in the file
type Constructors []Constructor

func (cs *Constructors) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: constructors must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var c Constructor
		if err := decodeStrict(node.Content[i+1], &c); err != nil {
			return fmt.Errorf("constructor %s: %w", node.Content[i].Value, err)
		}
		c.ID = node.Content[i].Value
		*cs = append(*cs, c)
	}
	return nil
}

// decodeStrict decodes node into out, refusing fields out does not declare.
// yaml.Node.Decode ignores the KnownFields setting of the enclosing decoder.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

type Variable struct {
	Name string `validate:"identifier"`
	Spec string `validate:"required"`
}

// Variables keeps variables in the order they appear in the file
type Variables []Variable

func (vs *Variables) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: variables must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec string
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return err
		}
		*vs = append(*vs, Variable{Name: node.Content[i].Value, Spec: spec})
	}
	return nil
}

type Rule struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Image   string `yaml:"image" validate:"required"`
	Guard   *Guard `yaml:"guard" validate:"omitempty"`
}

// Guard is a Go function literal taking the payloads of the literals bound to Args.
// A function returning bool is a predicate. Any other single result is wrapped with
// the Literal constructor and bound to the variable Bind, the guard then always accepting.
type Guard struct {
	Args    []string `yaml:"args" validate:"dive,identifier"`
	Func    string   `yaml:"func" validate:"required"`
	Bind    string   `yaml:"bind" validate:"required_with=Literal,omitempty,identifier"`
	Literal string   `yaml:"literal" validate:"required_with=Bind,omitempty,identifier"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return isIdentifier(fl.Field().String())
	})
	return v
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// Load decodes and validates a declaration document. It does not declare anything:
// see Document.Build.
func Load(r io.Reader) (*Document, error) {
	doc := &Document{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(doc); err != nil {
		return nil, hrwerr.New(hrwerr.DeclarationError{Where: "document", Reason: err.Error()})
	}
	if err := validate.Struct(doc); err != nil {
		return nil, validationError(err)
	}
	return doc, nil
}

func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return hrwerr.New(hrwerr.DeclarationError{Where: "document", Reason: err.Error()})
	}
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, fmt.Sprintf("%s fails '%s'", strings.TrimPrefix(fe.Namespace(), "Document."), fe.Tag()))
	}
	return hrwerr.New(hrwerr.DeclarationError{Where: "document", Reason: strings.Join(reasons, "; ")})
}
