// Package templates renders the HTML pages of the web UI as templ components.
//
// The *_templ.go files are generated from the .templ sources with
// `templ generate`; edit the sources, not the generated code.
package templates

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/rowfetch/internal/core"
)

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func templateURL(profile string) templ.SafeURL {
	return templ.URL("/api/profiles/" + profile + "/template")
}

func rowDownloadURL(sessionID string, index int) templ.SafeURL {
	return templ.URL(fmt.Sprintf("/api/sessions/%s/rows/%d/download", sessionID, index))
}

func archiveURL(exportID string) templ.SafeURL {
	return templ.URL("/api/exports/" + exportID + "/archive")
}

func slotsLine(st core.ServiceStatus) string {
	return fmt.Sprintf("%d session(s), %d/%d export slot(s) free",
		st.Sessions, st.Limiter.Available, st.Limiter.MaxConcurrent)
}

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 0; color: #1f2937; }
header { background: #1e3a8a; padding: .75rem 1.5rem; }
header a { color: #fff; font-weight: 600; text-decoration: none; }
main { max-width: 72rem; margin: 1.5rem auto; padding: 0 1.5rem; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; font-size: .9rem; }
th, td { border-bottom: 1px solid #e5e7eb; padding: .4rem .6rem; text-align: left; }
th { background: #f3f4f6; }
.alert { background: #fef2f2; border: 1px solid #fca5a5; padding: .6rem .8rem; margin: .5rem 0; }
.ok { color: #047857; }
.fail { color: #b91c1c; }
.muted { color: #6b7280; }
progress { width: 100%; }
button { padding: .35rem .8rem; }
`

const dashboardScript = `
document.getElementById('upload').addEventListener('submit', async (ev) => {
  ev.preventDefault();
  const form = new FormData(ev.target);
  const res = await fetch('/api/sessions', {method: 'POST', body: form, headers: {'Accept': 'application/json'}});
  const body = await res.json();
  if (!res.ok) {
    document.getElementById('upload-error').textContent = body.message + ' (' + body.code + '). ' + (body.action || '');
    return;
  }
  window.location = '/sessions/' + body.id;
});
`

const sessionScript = `
const root = document.getElementById('session');
const sid = root.dataset.session;
const status = document.getElementById('status');
const bar = document.getElementById('bar');
const cancelBtn = document.getElementById('cancel');
let exportID = null;

function selectedRows() {
  return [...root.querySelectorAll('input.row:checked')].map((c) => Number(c.value));
}

async function failure(res) {
  try {
    const body = await res.json();
    return body.message + ' (' + body.code + ')';
  } catch (e) {
    return res.statusText;
  }
}

document.getElementById('all').addEventListener('change', async (ev) => {
  root.querySelectorAll('input.row').forEach((c) => { c.checked = ev.target.checked; });
  await fetch('/api/sessions/' + sid + '/select', {
    method: 'POST', headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({all: true, selected: ev.target.checked}),
  });
});

document.getElementById('export').addEventListener('click', async () => {
  const res = await fetch('/api/sessions/' + sid + '/export', {
    method: 'POST', headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({rows: selectedRows()}),
  });
  if (!res.ok) { status.textContent = await failure(res); return; }
  exportID = (await res.json()).export_id;
  cancelBtn.disabled = false;

  const events = new EventSource('/api/exports/' + exportID + '/progress');
  events.addEventListener('progress', (ev) => {
    const p = JSON.parse(ev.data);
    bar.max = p.total;
    bar.value = p.current;
    status.textContent = p.phase + ' ' + p.current + '/' + p.total + (p.filename ? ' ' + p.filename : '');
  });
  events.addEventListener('complete', async () => {
    events.close();
    cancelBtn.disabled = true;
    const out = await fetch('/api/exports/' + exportID + '/result', {headers: {'HX-Request': 'true'}});
    document.getElementById('report').innerHTML = await out.text();
  });
});

cancelBtn.addEventListener('click', async () => {
  if (exportID) { await fetch('/api/exports/' + exportID + '/cancel', {method: 'POST'}); }
});

root.querySelectorAll('button.check').forEach((btn) => {
  btn.addEventListener('click', async () => {
    const out = btn.parentElement.querySelector('.result');
    out.textContent = 'checking...';
    const res = await fetch('/api/sessions/' + sid + '/rows/' + btn.dataset.row + '/fetch', {method: 'POST'});
    if (!res.ok) { out.textContent = await failure(res); return; }
    const preview = await res.json();
    out.textContent = preview.total_records + ' records, ' + preview.columns.length + ' columns';
  });
});
`
