package webui

import "github.com/gofiber/fiber/v2"

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(indexHTML)
}

func (s *Server) handleIndexJS(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/javascript; charset=utf-8")
	return c.SendString(indexJS)
}

func (s *Server) handleIndexCSS(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	return c.SendString(indexCSS)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>covfuzz</title>
  <link rel="stylesheet" href="/dashboard.css">
</head>
<body>
  <header>
    <h1>covfuzz</h1>
    <span id="status">connecting…</span>
  </header>
  <section id="stats">
    <div class="stat"><span class="label">Executions</span><span id="executions" class="value">0</span></div>
    <div class="stat"><span class="label">Edges</span><span id="edges" class="value">0</span></div>
    <div class="stat"><span class="label">Corpus</span><span id="corpus" class="value">0</span></div>
    <div class="stat"><span class="label">Crashes</span><span id="crashes" class="value">0</span></div>
    <div class="stat"><span class="label">Workers</span><span id="workers" class="value">0</span></div>
    <div class="stat"><span class="label">Uptime</span><span id="uptime" class="value">0s</span></div>
  </section>
  <section>
    <h2>Crashes</h2>
    <table id="crash-table">
      <thead><tr><th>Hash</th><th>Size</th><th>Error</th><th>Payload</th></tr></thead>
      <tbody></tbody>
    </table>
  </section>
  <script src="/dashboard.js"></script>
</body>
</html>`

const indexCSS = `
:root { color-scheme: dark; font-family: ui-monospace, monospace; }
body { background: #0d0d0d; color: #e0e0e0; margin: 2rem; }
header { display: flex; align-items: baseline; gap: 1rem; }
h1 { color: #0ff; }
#status { color: #666; }
#stats { display: flex; gap: 2rem; margin: 1.5rem 0; flex-wrap: wrap; }
.stat { border: 1px solid #333; padding: 0.5rem 1rem; border-radius: 4px; }
.label { display: block; color: #666; font-size: 0.8rem; }
.value { font-size: 1.4rem; font-weight: bold; color: #fff; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #222; }
th { color: #0ff; }
`

const indexJS = `
const el = id => document.getElementById(id);

function applyStats(s) {
  el('executions').textContent = s.executions;
  el('edges').textContent = s.unique_edges;
  el('corpus').textContent = s.corpus_size;
  el('crashes').textContent = s.crash_count;
  el('workers').textContent = s.active_workers;
  el('uptime').textContent = s.uptime;
}

function renderCrashes(rows) {
  const tbody = document.querySelector('#crash-table tbody');
  tbody.innerHTML = '';
  for (const r of rows) {
    const tr = document.createElement('tr');
    tr.innerHTML = '<td>' + r.hash.slice(0, 12) + '</td><td>' + r.size + '</td><td>' + (r.error_text || '') + '</td><td>' + (r.peek || '') + '</td>';
    tbody.appendChild(tr);
  }
}

fetch('/api/stats').then(r => r.json()).then(applyStats).catch(() => {});
fetch('/api/crashes').then(r => r.json()).then(renderCrashes).catch(() => {});

const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onopen = () => { el('status').textContent = 'live'; };
ws.onclose = () => { el('status').textContent = 'disconnected'; };
ws.onmessage = ev => {
  const msg = JSON.parse(ev.data);
  if (msg.type === 'stats') applyStats(msg.data);
  if (msg.type === 'crash') fetch('/api/crashes').then(r => r.json()).then(renderCrashes);
};
`
