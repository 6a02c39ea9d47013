package load

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sharegraph"
)

// SpecVersion is the specification format version understood by Load.
const SpecVersion = 1

// Spec is the top level of a specification document.
type Spec struct {
	Version int        `yaml:"version,omitempty" json:"version,omitempty"`
	Types   []TypeSpec `yaml:"types" json:"types"`
}

// TypeSpec declares one concrete type.
type TypeSpec struct {
	ConcreteType string          `yaml:"concrete_type" json:"concrete_type"`
	TypeTree     TypeTree        `yaml:"type_tree,omitempty" json:"type_tree,omitempty"`
	Attributes   []AttributeSpec `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Relations    []RelationSpec  `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// AttributeSpec declares a plain field.
type AttributeSpec struct {
	Name       string `yaml:"name" json:"name"`
	DataType   string `yaml:"data_type" json:"data_type"`
	DataFormat string `yaml:"data_format,omitempty" json:"data_format,omitempty"`
	IsRequired bool   `yaml:"is_required,omitempty" json:"is_required,omitempty"`
}

// RelationSpec declares a relation to another concrete type.
type RelationSpec struct {
	Name                string `yaml:"name" json:"name"`
	RelationShape       string `yaml:"relation_shape" json:"relation_shape"`
	RelatedConcreteType string `yaml:"related_concrete_type" json:"related_concrete_type"`
	InverseRelation     string `yaml:"inverse_relation,omitempty" json:"inverse_relation,omitempty"`
	ThroughConcreteType string `yaml:"through_concrete_type,omitempty" json:"through_concrete_type,omitempty"`
	IsRequired          bool   `yaml:"is_required,omitempty" json:"is_required,omitempty"`
}

// TypeTree is a subtype hierarchy. It decodes from a nested mapping, keeping
// the order in which entries were written.
type TypeTree []TypeNode

// TypeNode is one named subtype and its own subtypes.
type TypeNode struct {
	Name     string
	Children TypeTree
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TypeTree) UnmarshalYAML(value *yaml.Node) error {
	tree, err := yamlTree(value)
	if err != nil {
		return err
	}
	*t = tree
	return nil
}

func yamlTree(n *yaml.Node) (TypeTree, error) {
	switch {
	case n.Kind == yaml.ScalarNode && n.Tag == "!!null":
		return nil, nil
	case n.Kind == yaml.AliasNode:
		return yamlTree(n.Alias)
	case n.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("line %d: type_tree must be a mapping", n.Line)
	}
	tree := make(TypeTree, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		children, err := yamlTree(val)
		if err != nil {
			return nil, err
		}
		tree = append(tree, TypeNode{Name: key.Value, Children: children})
	}
	return tree, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeTree) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tree, err := jsonTree(dec)
	if err != nil {
		return err
	}
	*t = tree
	return nil
}

func jsonTree(dec *json.Decoder) (TypeTree, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case nil:
		return nil, nil
	case json.Delim('{'):
	default:
		return nil, fmt.Errorf("type_tree must be an object, got %v", tok)
	}
	var tree TypeTree
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := key.(string)
		children, err := jsonTree(dec)
		if err != nil {
			return nil, err
		}
		tree = append(tree, TypeNode{Name: name, Children: children})
	}
	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return tree, nil
}

// Decode reads a specification document. Both a Spec document and a bare
// list of type specifications are accepted, in YAML or JSON.
func Decode(r io.Reader) ([]TypeSpec, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, sharegraph.NewLoadError("", "", "empty specification", nil)
		}
		return nil, sharegraph.NewLoadError("", "", "decode specification", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.SequenceNode {
		var specs []TypeSpec
		if err := root.Decode(&specs); err != nil {
			return nil, sharegraph.NewLoadError("", "", "decode specification", err)
		}
		return specs, nil
	}
	var spec Spec
	if err := root.Decode(&spec); err != nil {
		return nil, sharegraph.NewLoadError("", "", "decode specification", err)
	}
	if spec.Version != 0 && spec.Version != SpecVersion {
		return nil, sharegraph.NewLoadError("", "", fmt.Sprintf("unsupported specification version %d", spec.Version), nil)
	}
	return spec.Types, nil
}
