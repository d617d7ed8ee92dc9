package overlay

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
)

// DefaultTemplate renders a compact game panel.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { margin: 0; font-family: sans-serif; color: #fff; background: transparent; }
.panel { display: flex; gap: 12px; padding: 12px; background: rgba(0, 0, 0, 0.6); }
.panel img { height: 160px; }
.muted { opacity: 0.7; }
</style>
</head>
<body>
{{- if .found }}
<div class="panel">
  <img src="{{ .cover_url }}" alt="{{ .name }}">
  <div>
    <h1>{{ .name }}</h1>
    {{- with .platforms }}<p>{{ join . " / " }}</p>{{ end }}
    {{- range .release_dates }}<p class="muted">{{ .region }}: {{ .date }}</p>{{ end }}
    {{- with .developers }}<p>Developer: {{ join . ", " }}</p>{{ end }}
    {{- with .publishers }}<p>Publisher: {{ join . ", " }}</p>{{ end }}
  </div>
</div>
{{- else if .game_name }}
<div class="panel"><h1>{{ .game_name }}</h1></div>
{{- end }}
</body>
</html>
`

// Renderer executes the game info template. Load may be called
// concurrently with Render.
type Renderer struct {
	mu   sync.RWMutex
	tmpl *template.Template
}

// NewRenderer compiles source, falling back to DefaultTemplate when empty.
func NewRenderer(source string) (*Renderer, error) {
	r := &Renderer{}

	if err := r.Load(source); err != nil {
		return nil, err
	}

	return r, nil
}

// Load compiles source and swaps it in. A compile error leaves the current
// template in place.
func (r *Renderer) Load(source string) error {
	if source == "" {
		source = DefaultTemplate
	}

	tmpl, err := template.New("gameinfo").Funcs(funcs).Parse(source)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()

	return nil
}

// Render executes the template against the snapshot's fields.
func (r *Renderer) Render(snapshot *gameinfo.Snapshot) ([]byte, error) {
	r.mu.RLock()
	tmpl := r.tmpl
	r.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Fields(snapshot)); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	return buf.Bytes(), nil
}

// Fields flattens a snapshot into the names templates refer to. A missing
// record renders with found=false and empty collections.
func Fields(snapshot *gameinfo.Snapshot) map[string]any {
	fields := map[string]any{
		"found":         false,
		"game_name":     "",
		"name":          "",
		"cover_url":     "",
		"platforms":     []string{},
		"release_dates": []map[string]string{},
		"developers":    []string{},
		"publishers":    []string{},
	}

	if snapshot == nil {
		return fields
	}

	fields["game_name"] = snapshot.GameName

	rec := snapshot.Record
	if rec == nil {
		return fields
	}

	dates := make([]map[string]string, 0, len(rec.ReleaseDates))
	for _, rd := range rec.ReleaseDates {
		dates = append(dates, map[string]string{"date": rd.Date, "region": rd.Region})
	}

	fields["found"] = true
	fields["name"] = rec.Name
	fields["cover_url"] = rec.CoverURL
	fields["platforms"] = rec.Platforms
	fields["release_dates"] = dates
	fields["developers"] = rec.Developers
	fields["publishers"] = rec.Publishers

	return fields
}
