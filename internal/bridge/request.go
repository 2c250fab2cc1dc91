package bridge

import (
	"encoding/json"
	"strings"
	"unicode"

	"aidance/internal/core"
)

// MaxHistory is the number of trailing turns sent with each request.
const MaxHistory = 20

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"

	defaultImageMIME = "image/jpeg"

	imagePlaceholder     = "[图片]"
	imageOnlyPlaceholder = "[用户发送了图片]"
)

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

// ChatMessage carries either plain Text or multimodal Parts. Parts wins
// when both are set.
type ChatMessage struct {
	Role  string
	Text  string
	Parts []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if len(m.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{m.Role, m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Text})
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	if len(raw.Content) > 0 && raw.Content[0] == '[' {
		return json.Unmarshal(raw.Content, &m.Parts)
	}
	return json.Unmarshal(raw.Content, &m.Text)
}

// SelectModel picks the vision model when the final turn carries images.
func SelectModel(history []core.Message, cfg Config) string {
	if n := len(history); n > 0 && history[n-1].HasImages() {
		return cfg.VisionModel
	}
	return cfg.TextModel
}

// BuildRequest shapes the conversation for the completion endpoint: the
// system prompt, then the last MaxHistory turns. Only the final user turn
// keeps its images, and only when the vision model is selected; earlier
// images are replaced by a text placeholder.
func BuildRequest(history []core.Message, todos core.TodoList, cfg Config) ChatRequest {
	vision := len(history) > 0 && history[len(history)-1].HasImages()

	recent := history
	if len(recent) > MaxHistory {
		recent = recent[len(recent)-MaxHistory:]
	}

	msgs := make([]ChatMessage, 0, len(recent)+1)
	msgs = append(msgs, ChatMessage{Role: roleSystem, Text: SystemPrompt(todos)})

	for i, m := range recent {
		last := i == len(recent)-1

		if m.Role == core.RoleModel {
			text := strings.TrimSpace(m.Content)
			if text == "" {
				text = " "
			}
			msgs = append(msgs, ChatMessage{Role: roleAssistant, Text: text})
			continue
		}

		if m.HasImages() && last && vision {
			text := m.Content
			if text == "" {
				text = " "
			}
			parts := []ContentPart{{Type: "text", Text: text}}
			for _, img := range m.Images {
				parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: DataURI(img)}})
			}
			msgs = append(msgs, ChatMessage{Role: roleUser, Parts: parts})
			continue
		}

		text := m.Content
		if m.HasImages() {
			if text != "" {
				text += "\n" + imagePlaceholder
			} else {
				text = imageOnlyPlaceholder
			}
		}
		if strings.TrimSpace(text) == "" {
			text = " "
		}
		msgs = append(msgs, ChatMessage{Role: roleUser, Text: text})
	}

	return ChatRequest{
		Model:       SelectModel(history, cfg),
		Messages:    msgs,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
	}
}

// DataURI normalises a stored image into data:<mime>;base64,<payload> with
// whitespace removed from the payload. Bare base64 is assumed to be JPEG.
func DataURI(img string) string {
	mime, payload := defaultImageMIME, img
	if strings.HasPrefix(img, "data:") {
		if comma := strings.IndexByte(img, ','); comma >= 0 {
			header := img[len("data:"):comma]
			payload = img[comma+1:]
			if m, _, _ := strings.Cut(header, ";"); m != "" {
				mime = m
			}
		}
	}
	return "data:" + mime + ";base64," + stripSpace(payload)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
