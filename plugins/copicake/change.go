package copicake

import (
	"fmt"
)

// ChangeType selects which template element kind a change targets.
type ChangeType string

const (
	ChangeTypeText   ChangeType = "text"
	ChangeTypeImage  ChangeType = "image"
	ChangeTypeQRCode ChangeType = "qrcode"
	ChangeTypeShape  ChangeType = "shape"
)

// Change is one edit applied to a named template element. The concrete
// types below are the only implementations; each serializes exactly its
// own field set.
type Change interface {
	Type() ChangeType
	ElementName() string
	isChange()
}

type TextChange struct {
	Name                string `json:"name" validate:"required"`
	Text                string `json:"text,omitempty"`
	Fill                string `json:"fill,omitempty"`
	Stroke              string `json:"stroke,omitempty"`
	TextBackgroundColor string `json:"textBackgroundColor,omitempty"`
}

type ImageChange struct {
	Name   string `json:"name" validate:"required"`
	Src    string `json:"src,omitempty"`
	Stroke string `json:"stroke,omitempty"`
}

type QRCodeChange struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content,omitempty"`
	Fill    string `json:"fill,omitempty"`
	Stroke  string `json:"stroke,omitempty"`
}

// ShapeChange covers rectangles, triangles and circles.
type ShapeChange struct {
	Name   string `json:"name" validate:"required"`
	Fill   string `json:"fill,omitempty"`
	Stroke string `json:"stroke,omitempty"`
}

func (TextChange) Type() ChangeType   { return ChangeTypeText }
func (ImageChange) Type() ChangeType  { return ChangeTypeImage }
func (QRCodeChange) Type() ChangeType { return ChangeTypeQRCode }
func (ShapeChange) Type() ChangeType  { return ChangeTypeShape }

func (c TextChange) ElementName() string   { return c.Name }
func (c ImageChange) ElementName() string  { return c.Name }
func (c QRCodeChange) ElementName() string { return c.Name }
func (c ShapeChange) ElementName() string  { return c.Name }

func (TextChange) isChange()   {}
func (ImageChange) isChange()  {}
func (QRCodeChange) isChange() {}
func (ShapeChange) isChange()  {}

// ChangeSpec is the flat form a change arrives in from a flow or the CLI:
// every field a change could carry, plus the type selecting which of them
// apply. Build turns it into the typed Change, dropping the fields the
// type does not use.
type ChangeSpec struct {
	Name                string     `json:"name" validate:"required"`
	ChangeType          ChangeType `json:"change_type" validate:"omitempty,oneof=text image qrcode shape"`
	Text                string     `json:"text"`
	Fill                string     `json:"fill"`
	Stroke              string     `json:"stroke"`
	TextBackgroundColor string     `json:"text_background_color"`
	Src                 string     `json:"src"`
	Content             string     `json:"content"`
}

// Build returns the typed change. An empty change type means text.
func (s ChangeSpec) Build() (Change, error) {
	switch s.ChangeType {
	case ChangeTypeText, "":
		return TextChange{
			Name:                s.Name,
			Text:                s.Text,
			Fill:                s.Fill,
			Stroke:              s.Stroke,
			TextBackgroundColor: s.TextBackgroundColor,
		}, nil
	case ChangeTypeImage:
		return ImageChange{Name: s.Name, Src: s.Src, Stroke: s.Stroke}, nil
	case ChangeTypeQRCode:
		return QRCodeChange{Name: s.Name, Content: s.Content, Fill: s.Fill, Stroke: s.Stroke}, nil
	case ChangeTypeShape:
		return ShapeChange{Name: s.Name, Fill: s.Fill, Stroke: s.Stroke}, nil
	default:
		return nil, fmt.Errorf("%w: unknown change type %q for element %q", ErrInvalidRequest, s.ChangeType, s.Name)
	}
}

// BuildChanges converts specs in order.
func BuildChanges(specs []ChangeSpec) ([]Change, error) {
	changes := make([]Change, 0, len(specs))
	for i, s := range specs {
		c, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}
