package server

import (
	"fmt"
	"html/template"
	"net/url"
	"time"
)

// humanSize renders a byte count for display (1.5 KB, 2.0 MB, ...).
func humanSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"humanSize":  humanSize,
	"formatTime": formatTime,
	"pathEscape": url.PathEscape,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LAN Share</title>
<style>
  body { font-family: sans-serif; max-width: 760px; margin: 2em auto; padding: 0 1em; color: #222; }
  h1 { font-size: 1.4em; }
  h2 { font-size: 1.1em; margin-top: 2em; border-bottom: 1px solid #ddd; padding-bottom: .3em; }
  table { width: 100%; border-collapse: collapse; }
  td, th { text-align: left; padding: .4em .5em; border-bottom: 1px solid #eee; }
  .meta { color: #888; font-size: .85em; white-space: nowrap; }
  .snippet { border: 1px solid #eee; border-radius: 4px; padding: .6em .8em; margin: .5em 0; }
  .snippet pre { margin: .3em 0 0; white-space: pre-wrap; word-break: break-word; }
  form.inline { display: inline; }
  textarea { width: 100%; box-sizing: border-box; min-height: 4em; }
  button { cursor: pointer; }
  .empty { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>LAN Share</h1>

<h2>Upload</h2>
<form id="upload-form">
  <input type="file" name="file" id="file-input">
  <button type="submit">Upload</button>
</form>

<h2>Files</h2>
{{if .Files}}
<table>
  <tr><th>Name</th><th>Size</th><th>Modified</th><th></th></tr>
  {{range .Files}}
  <tr>
    <td><a href="/download/{{pathEscape .Name}}">{{.Name}}</a></td>
    <td class="meta">{{humanSize .Size}}</td>
    <td class="meta">{{formatTime .ModTime}}</td>
    <td><button onclick="deleteFile('{{.Name}}')">Delete</button></td>
  </tr>
  {{end}}
</table>
{{else}}
<p class="empty">No files shared yet.</p>
{{end}}

<h2>Text</h2>
<form id="text-form">
  <textarea id="text-input" placeholder="Paste text to share"></textarea>
  <button type="submit">Share</button>
  <button type="button" onclick="clearTexts()">Clear all</button>
</form>
{{if .Texts}}
{{range .Texts}}
<div class="snippet">
  <span class="meta">{{.Time}}</span>
  <button class="inline" onclick="deleteText('{{.ID}}')">Delete</button>
  <pre>{{.Content}}</pre>
</div>
{{end}}
{{else}}
<p class="empty">No text shared yet.</p>
{{end}}

<script>
document.getElementById('upload-form').addEventListener('submit', async function (e) {
  e.preventDefault();
  const input = document.getElementById('file-input');
  const data = new FormData();
  if (input.files.length > 0) data.append('file', input.files[0]);
  const resp = await fetch('/upload', { method: 'POST', body: data });
  const body = await resp.json();
  if (resp.ok) location.reload(); else alert(body.error);
});
document.getElementById('text-form').addEventListener('submit', async function (e) {
  e.preventDefault();
  const content = document.getElementById('text-input').value;
  const resp = await fetch('/text', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ content: content })
  });
  const body = await resp.json();
  if (resp.ok) location.reload(); else alert(body.error);
});
async function deleteFile(name) {
  const resp = await fetch('/delete/' + encodeURIComponent(name), { method: 'POST' });
  if (resp.ok) location.reload();
}
async function deleteText(id) {
  const resp = await fetch('/text/' + encodeURIComponent(id), { method: 'DELETE' });
  if (resp.ok) location.reload();
}
async function clearTexts() {
  const resp = await fetch('/clear-texts', { method: 'POST' });
  if (resp.ok) location.reload();
}
</script>
</body>
</html>
`
