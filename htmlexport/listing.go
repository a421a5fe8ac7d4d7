package htmlexport

import (
	"bytes"
	"html/template"

	"github.com/dustin/go-humanize"

	"github.com/nexusfs/engine/types"
)

type listingRow struct {
	Name     string
	IsDir    bool
	Size     string
	Modified string
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Path}}</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a1a; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.35rem 0.75rem; border-bottom: 1px solid #e2e2e2; }
tr.dir td.name::before { content: "📁 "; }
tr:not(.dir) td.name::before { content: "📄 "; }
td.size, th.size { text-align: right; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<table>
<thead><tr><th>Name</th><th class="size">Size</th><th>Modified</th></tr></thead>
<tbody>
{{range .Rows}}<tr{{if .IsDir}} class="dir"{{end}}>
<td class="name">{{.Name}}</td>
<td class="size">{{.Size}}</td>
<td>{{.Modified}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>
`))

// ExportListing renders snapshot as a standalone HTML page. Sizes are
// humanized (e.g. "4.2 kB") and directory rows are marked via CSS. Rows keep
// the snapshot's own order (directories first when the snapshot was built
// that way); the listing is not re-sorted.
func ExportListing(snapshot types.DirectorySnapshot) (string, error) {
	rows := make([]listingRow, 0, snapshot.Len())
	for _, e := range snapshot.Entries() {
		size := ""
		if !e.IsDir {
			size = humanize.Bytes(uint64(e.Size))
		}
		rows = append(rows, listingRow{
			Name:     e.Name,
			IsDir:    e.IsDir,
			Size:     size,
			Modified: humanize.Time(e.Modified),
		})
	}

	var buf bytes.Buffer
	err := listingTemplate.Execute(&buf, struct {
		Path string
		Rows []listingRow
	}{Path: snapshot.Path, Rows: rows})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
