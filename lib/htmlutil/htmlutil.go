package htmlutil

import (
	"bytes"

	"loto6-archive/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// <br> separates values that are otherwise glued together
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the normalized text of every node in the selection joined by spaces.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for i, n := range sel.Nodes {
		if i > 0 {
			buffer.WriteByte(' ')
		}
		getTextRecursive(n, &buffer)
	}
	return textutil.Normalize(buffer.String())
}

// Row is a table row reduced to its header label and the text of its data cells.
type Row struct {
	Label string
	Cells []string
}

// Rows flattens the <tr> elements of a table. The label is the text of the
// first <th>, with whitespace removed.
func Rows(table *goquery.Selection) []Row {
	var rows []Row
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		row := Row{Label: textutil.NormalizeLabel(Text(tr.Find("th").First()))}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, Text(td))
		})
		rows = append(rows, row)
	})
	return rows
}
