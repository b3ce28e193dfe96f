package render

import (
	"html"
	"net/url"
)

// Encoder implements the context-sensitive escaping contract from
// spec.md §6: "encode(writer, string) — HTML by default, raw for plain
// text, URL-component for URL tags."
type Encoder interface {
	Encode(s string) string
}

type htmlEncoder struct{}

func (htmlEncoder) Encode(s string) string { return html.EscapeString(s) }

type rawEncoder struct{}

func (rawEncoder) Encode(s string) string { return s }

type urlEncoder struct{}

func (urlEncoder) Encode(s string) string { return url.QueryEscape(s) }

// HTMLEncoder is the default encoder: every output statement's result is
// HTML-escaped unless explicitly marked safe.
var HTMLEncoder Encoder = htmlEncoder{}

// RawEncoder performs no escaping, for plain-text render targets.
var RawEncoder Encoder = rawEncoder{}

// URLEncoder percent-encodes for use inside URL query components.
var URLEncoder Encoder = urlEncoder{}
