package anidb

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

// ParseTitlesXMLBytes is ParseTitlesXML over an in-memory document.
func ParseTitlesXMLBytes(data []byte, handle func(domain.Title)) error {
	return ParseTitlesXML(bytes.NewReader(data), handle)
}

// translateTitleType rewrites the anidb-specific "syn" type into the
// normalized "synonym" used everywhere else in this system.
func translateTitleType(value string) string {
	if value == "syn" {
		return domain.TitleTypeSynonym
	}
	return value
}

// ParseTitlesXML streams the anidb titles dump token by token (its own
// SAX-style parse, translated to Go's token-based decoder rather than
// building a full element tree for what is typically a multi-hundred-
// megabyte document) and calls handle for every <title> found, tagged
// with the aid of its surrounding <anime>.
func ParseTitlesXML(r io.Reader, handle func(domain.Title)) error {
	dec := xml.NewDecoder(r)

	var aid string
	var inTitle bool
	var cur domain.Title
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "parse anidb titles xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "anime":
				aid = attr(t, "aid")
			case "title":
				inTitle = true
				text.Reset()
				cur = domain.Title{
					Aid:  aid,
					Type: translateTitleType(attr(t, "type")),
					Lang: attrNS(t, "lang"),
				}
			}
		case xml.CharData:
			if inTitle {
				text.Write(t)
			}
		case xml.EndElement:
			if strings.ToLower(t.Name.Local) == "title" && inTitle {
				cur.Value = text.String()
				handle(cur)
				inTitle = false
			}
		}
	}
	return nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// attrNS finds an attribute by local name regardless of its namespace,
// for xml:lang whose Name.Space is the XML namespace URI rather than "".
func attrNS(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
