package sink

import (
	"fmt"
	"html/template"
	"os"
	"path"
	"strings"
	"time"

	"tgarchive/pkg/models"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true,
}

const htmlHeader = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Channel Messages</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f5f5;
            margin: 0;
            padding: 20px;
        }
        .container {
            max-width: 900px;
            margin: 0 auto;
        }
        .channel-header {
            background: white;
            padding: 20px;
            border-radius: 10px;
            margin-bottom: 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .channel-title {
            font-size: 24px;
            font-weight: bold;
            color: #333;
            margin-bottom: 10px;
        }
        .channel-info {
            color: #666;
            font-size: 14px;
        }
        .message {
            background: white;
            margin-bottom: 15px;
            padding: 15px;
            border-radius: 10px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .message-header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 10px;
            padding-bottom: 10px;
            border-bottom: 1px solid #eee;
        }
        .sender {
            font-weight: bold;
            color: #0088cc;
        }
        .date {
            color: #999;
            font-size: 12px;
        }
        .message-text {
            line-height: 1.5;
            color: #333;
            white-space: pre-wrap;
            word-wrap: break-word;
        }
        .message-media {
            margin-top: 10px;
        }
        .message-media img, .message-media video {
            max-width: 100%;
            height: auto;
            border-radius: 5px;
        }
        .media-placeholder {
            background: #f0f0f0;
            padding: 10px;
            border-radius: 5px;
            color: #666;
            font-style: italic;
        }
        .message-footer {
            margin-top: 10px;
            padding-top: 10px;
            border-top: 1px solid #eee;
            display: flex;
            gap: 20px;
            font-size: 12px;
            color: #999;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="channel-header">
            <div class="channel-title">Channel Messages</div>
            <div class="channel-info">Downloaded on {{.DownloadedAt}}</div>
        </div>
        <div id="messages">
`

const htmlFooter = `
        </div>
    </div>
</body>
</html>`

const messageBlock = `
        <div class="message" data-message-id="{{.ID}}">
            <div class="message-header">
                <span class="sender">{{.Sender}}</span>
                <span class="date">{{.Date}}</span>
            </div>
            <div class="message-text">{{.Text}}</div>
{{- if .ImagePath}}
            <div class="message-media">
                <img src="{{.ImagePath}}" alt="Image" loading="lazy">
            </div>
{{- else if .VideoPath}}
            <div class="message-media">
                <video controls>
                    <source src="{{.VideoPath}}" type="video/mp4">
                    Your browser does not support the video tag.
                </video>
            </div>
{{- else if .FilePath}}
            <div class="message-media">
                <div class="media-placeholder">
                    Attachment: <a href="{{.FilePath}}">{{.FileName}}</a>
                </div>
            </div>
{{- else if .Pending}}
            <div class="message-media">
                <div class="media-placeholder">{{.PendingKind}} (not downloaded yet)</div>
            </div>
{{- end}}
{{- if .HasStats}}
            <div class="message-footer">
{{- if .Views}}
                <span>{{.Views}} views</span>
{{- end}}
{{- if .Forwards}}
                <span>{{.Forwards}} forwards</span>
{{- end}}
            </div>
{{- end}}
        </div>
`

var (
	headerTmpl  = template.Must(template.New("header").Parse(htmlHeader))
	messageTmpl = template.Must(template.New("message").Parse(messageBlock))
)

// HTMLWriter streams records into a self-contained HTML document. All
// user-supplied text goes through html/template, so markup-like characters
// in message bodies or sender names cannot break the document.
type HTMLWriter struct {
	file *os.File
}

// NewHTMLWriter opens (truncating) the HTML file at path and writes the
// document header.
func NewHTMLWriter(path string) (*HTMLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create html file: %w", err)
	}

	err = headerTmpl.Execute(file, map[string]string{
		"DownloadedAt": time.Now().Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write html header: %w", err)
	}

	return &HTMLWriter{file: file}, nil
}

type messageView struct {
	ID          int64
	Sender      string
	Date        string
	Text        string
	ImagePath   string
	VideoPath   string
	FilePath    string
	FileName    string
	Pending     bool
	PendingKind string
	Views       int
	Forwards    int
	HasStats    bool
}

// Write renders one message block.
func (w *HTMLWriter) Write(msg *models.Message) error {
	view := messageView{
		ID:       msg.ID,
		Sender:   senderDisplay(msg),
		Date:     dateDisplay(msg.Date),
		Text:     msg.Text,
		Views:    msg.Views,
		Forwards: msg.Forwards,
		HasStats: msg.Views > 0 || msg.Forwards > 0,
	}

	switch {
	case msg.MediaPath != "":
		ext := strings.ToLower(path.Ext(msg.MediaPath))
		switch {
		case msg.MediaKind == models.MediaImage || imageExts[ext]:
			view.ImagePath = msg.MediaPath
		case videoExts[ext]:
			view.VideoPath = msg.MediaPath
		default:
			view.FilePath = msg.MediaPath
			view.FileName = path.Base(msg.MediaPath)
		}
	case msg.HasMedia:
		view.Pending = true
		view.PendingKind = pendingLabel(msg.MediaKind)
	}

	if err := messageTmpl.Execute(w.file, view); err != nil {
		return fmt.Errorf("failed to write html message %d: %w", msg.ID, err)
	}
	return nil
}

// Finalize writes the closing document tags and closes the file.
func (w *HTMLWriter) Finalize() error {
	if _, err := w.file.WriteString(htmlFooter); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to write html footer: %w", err)
	}
	return w.file.Close()
}

// Path returns the output file path.
func (w *HTMLWriter) Path() string {
	return w.file.Name()
}

func senderDisplay(msg *models.Message) string {
	name := msg.SenderName
	if name == "" {
		name = "Unknown"
	}
	if msg.SenderUsername != "" {
		return fmt.Sprintf("%s (@%s)", name, msg.SenderUsername)
	}
	return name
}

func dateDisplay(t time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	return t.Format("2006-01-02 15:04:05")
}

func pendingLabel(kind models.MediaKind) string {
	if kind == models.MediaNone {
		return "Media"
	}
	return strings.ToUpper(string(kind[:1])) + string(kind[1:])
}
