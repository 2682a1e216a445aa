package ai

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Content part shapes for the OpenAI-compatible chat completions API.
// Data-URL parts carry the file bytes inline.

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURLPart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

type filePart struct {
	Type string   `json:"type"`
	File fileData `json:"file"`
}

type fileData struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

func dataURL(mimetype string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimetype, base64.StdEncoding.EncodeToString(data))
}

// visionInputs filters the attachments that may be forwarded as vision
// inputs: assistant-generated images are never re-uploaded on later
// turns, only user-authored attachments are.
func visionInputs(atts []Attachment) []Attachment {
	out := make([]Attachment, 0, len(atts))
	for _, a := range atts {
		if a.FromAssistant {
			continue
		}
		out = append(out, a)
	}
	return out
}

// fallbackContent demotes attachments to text for models without
// vision support. Every attachment name is preserved, including
// assistant-authored ones: only the vision-parts path excludes those,
// and only from byte upload, never from text.
func fallbackContent(text string, atts []Attachment) string {
	if len(atts) == 0 {
		return text
	}
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, a.Name)
	}
	suffix := "[Attachments: " + strings.Join(names, ", ") + "]"
	if text == "" {
		return suffix
	}
	return text + "\n" + suffix
}

// messageContent builds the wire content value for one message: a plain
// string when the target model lacks vision support or the message has
// no attachments, otherwise a structured parts list. Images become
// inline data-URL parts, PDFs become base64 file parts, and anything
// else (including unreadable files) is folded into a trailing text
// part.
func messageContent(m Message, visionCapable bool, files FileSource) any {
	atts := visionInputs(m.Attachments)
	if !visionCapable {
		return fallbackContent(m.Content, m.Attachments)
	}
	if len(atts) == 0 {
		return m.Content
	}

	parts := make([]any, 0, len(atts)+2)
	if m.Content != "" {
		parts = append(parts, textPart{Type: "text", Text: m.Content})
	}

	var leftover []string
	for _, a := range atts {
		if !files.Exists(a.Path) {
			leftover = append(leftover, a.Name)
			continue
		}
		data, err := files.Read(a.Path)
		if err != nil {
			leftover = append(leftover, a.Name)
			continue
		}
		switch {
		case strings.HasPrefix(a.Mimetype, "image/"):
			parts = append(parts, imageURLPart{
				Type:     "image_url",
				ImageURL: imageURL{URL: dataURL(a.Mimetype, data)},
			})
		case a.Mimetype == "application/pdf":
			parts = append(parts, filePart{
				Type: "file",
				File: fileData{Filename: a.Name, FileData: dataURL(a.Mimetype, data)},
			})
		default:
			leftover = append(leftover, a.Name)
		}
	}

	if len(leftover) > 0 {
		parts = append(parts, textPart{
			Type: "text",
			Text: "[Non-image attachments: " + strings.Join(leftover, ", ") + "]",
		})
	}
	return parts
}
