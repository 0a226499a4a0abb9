package event

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// ContentType is the media type of an encoded event document.
const ContentType = "application/xml"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
)

// Encode renders the event document accepted by the iLert Icinga endpoint:
//
//	<event><apiKey>KEY</apiKey><payload><entry key="k">v</entry>...</payload></event>
func Encode(apiKey string, p Payload) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString("<event><apiKey>")
	b.WriteString(textEscaper.Replace(apiKey))
	b.WriteString("</apiKey><payload>")
	for _, e := range p.Entries() {
		b.WriteString("<entry key=")
		b.WriteString(quoteAttr(e.Key))
		b.WriteString(">")
		b.WriteString(textEscaper.Replace(e.Value))
		b.WriteString("</entry>")
	}
	b.WriteString("</payload></event>")
	return b.Bytes()
}

// quoteAttr escapes s and wraps it in double quotes, or in single quotes
// when s contains a double quote but no single quote.
func quoteAttr(s string) string {
	s = attrEscaper.Replace(s)
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + strings.ReplaceAll(s, `"`, "&quot;") + `"`
}

type document struct {
	XMLName xml.Name `xml:"event"`
	APIKey  string   `xml:"apiKey"`
	Entries []struct {
		Key   string `xml:"key,attr"`
		Value string `xml:",chardata"`
	} `xml:"payload>entry"`
}

// Decode parses a document produced by Encode.
func Decode(data []byte) (apiKey string, p Payload, err error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, e := range doc.Entries {
		p.Set(e.Key, e.Value)
	}
	return doc.APIKey, p, nil
}
