package model

import (
	"github.com/m-mizutani/goerr/v2"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageData is a self-describing inline image reference.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// Part is a closed content variant: exactly one of Text or Image is set.
type Part struct {
	Text  string
	Image *ImageData
}

// NewTextPart creates a text content part.
func NewTextPart(text string) Part {
	return Part{Text: text}
}

// NewImagePart creates an inline image content part.
func NewImagePart(mimeType string, data []byte) Part {
	return Part{Image: &ImageData{MIMEType: mimeType, Data: data}}
}

// Validate checks that exactly one variant is populated.
func (p Part) Validate() error {
	if p.Text == "" && p.Image == nil {
		return goerr.New("empty content part")
	}
	if p.Text != "" && p.Image != nil {
		return goerr.New("content part has both text and image")
	}
	if p.Image != nil && len(p.Image.Data) == 0 {
		return goerr.New("image part has no data")
	}
	return nil
}

// Size returns the rough byte footprint of the part, used for transcript
// growth accounting.
func (p Part) Size() int {
	if p.Image != nil {
		return len(p.Image.Data)
	}
	return len(p.Text)
}

// Message is a single conversation turn. Order within a transcript is
// significant and append-only during a loop run.
type Message struct {
	Role  Role
	Parts []Part
}

// NewTextMessage creates a message with a single text part.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{NewTextPart(text)}}
}

// Size returns the rough byte footprint of the message.
func (m Message) Size() int {
	total := 0
	for _, p := range m.Parts {
		total += p.Size()
	}
	return total
}
