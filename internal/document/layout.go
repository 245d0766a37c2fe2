package document

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout is the YAML description of bindings and elements.
//
// Example:
//
//	bindings:
//	  - tag: devfile-output-color
//	    attributes:
//	      id: leds
//	      location: /dev/devbind/leds
//	      channels-per-element: "2"
//	      colors-channel: "white:0;blue:1"
//	elements:
//	  - id: hall
//	    tag: room
//	  - id: led-hall
//	    tag: led
//	    parent: hall
//	    style:
//	      color: white
//	    bind:
//	      - binding: leds
//	        channel: 0
type Layout struct {
	Bindings []BindingDecl `yaml:"bindings"`
	Elements []ElementDecl `yaml:"elements"`
}

// BindingDecl declares one binding tag.
type BindingDecl struct {
	Tag        string            `yaml:"tag"`
	Attributes map[string]string `yaml:"attributes"`
}

// ID returns the declared binding id.
func (b BindingDecl) ID() string {
	return strings.TrimSpace(b.Attributes["id"])
}

// ElementDecl declares one element.
type ElementDecl struct {
	ID         string            `yaml:"id"`
	Tag        string            `yaml:"tag"`
	Parent     string            `yaml:"parent"`
	Attributes map[string]string `yaml:"attributes"`
	Style      map[string]string `yaml:"style"`
	Bind       []BindDecl        `yaml:"bind"`
}

// BindDecl associates the enclosing element with a binding channel.
type BindDecl struct {
	Binding string `yaml:"binding"`
	Channel int    `yaml:"channel"`
}

// LoadLayout reads and validates a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout parses and validates layout YAML.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %w", ErrInvalidLayout, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks element ids, parent order and bind references. Binding
// attributes are validated by the binding itself when it becomes ready.
func (l *Layout) Validate() error {
	var errs []string

	declared := make(map[string]bool)
	for i, b := range l.Bindings {
		if strings.TrimSpace(b.Tag) == "" {
			errs = append(errs, fmt.Sprintf("bindings[%d]: tag is required", i))
		}
		if id := b.ID(); id != "" {
			declared[id] = true
		}
	}

	seen := make(map[string]bool)
	for i, e := range l.Elements {
		id := strings.TrimSpace(e.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Sprintf("elements[%d]: id is required", i))
		case seen[id]:
			errs = append(errs, fmt.Sprintf("elements[%d]: duplicate id %q", i, id))
		}
		if e.Parent != "" && !seen[e.Parent] {
			errs = append(errs, fmt.Sprintf("elements[%d]: parent %q must be declared before %q", i, e.Parent, id))
		}
		for j, ref := range e.Bind {
			if !declared[ref.Binding] {
				errs = append(errs, fmt.Sprintf("elements[%d].bind[%d]: unknown binding %q", i, j, ref.Binding))
			}
			if ref.Channel < 0 {
				errs = append(errs, fmt.Sprintf("elements[%d].bind[%d]: channel must be non-negative", i, j))
			}
		}
		seen[id] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(errs, "; "))
	}
	return nil
}

// Build creates a document from the layout: elements with their initial
// attributes and style, and the binding associations. No observer is
// attached yet, so the initial values produce no notifications.
func (l *Layout) Build() (*Document, error) {
	d := New()
	var errs []error
	for _, e := range l.Elements {
		if _, err := d.AddElement(e.ID, e.Tag, e.Parent); err != nil {
			return nil, err
		}
		for name, value := range e.Attributes {
			errs = append(errs, d.SetAttribute(e.ID, name, value))
		}
		for prop, value := range e.Style {
			errs = append(errs, d.SetStyle(e.ID, prop, value))
		}
		for _, ref := range e.Bind {
			errs = append(errs, d.Bind(ref.Binding, ref.Channel, e.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	return d, nil
}
