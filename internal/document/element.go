package document

// Element is a handle on one element of a Document.
// It implements devfile.Element.
type Element struct {
	doc *Document
	id  string
}

// ID returns the element id.
func (e *Element) ID() string { return e.id }

// Attribute returns an attribute value.
func (e *Element) Attribute(name string) (string, bool) {
	return e.doc.Attribute(e.id, name)
}

// SetAttribute sets an attribute.
func (e *Element) SetAttribute(name, value string) {
	if err := e.doc.SetAttribute(e.id, name, value); err != nil {
		e.doc.logError("setting element attribute failed", err, "element_id", e.id, "name", name)
	}
}

// RemoveAttribute removes an attribute.
func (e *Element) RemoveAttribute(name string) {
	if err := e.doc.RemoveAttribute(e.id, name); err != nil {
		e.doc.logError("removing element attribute failed", err, "element_id", e.id, "name", name)
	}
}

// Style returns a style property value.
func (e *Element) Style(property string) (string, bool) {
	return e.doc.Style(e.id, property)
}

// DispatchEvent fires a named event on the element.
func (e *Element) DispatchEvent(name string) {
	if err := e.doc.DispatchEvent(e.id, name); err != nil {
		e.doc.logError("dispatching element event failed", err, "element_id", e.id, "name", name)
	}
}
