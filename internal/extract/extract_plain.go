package extract

import (
	"context"
	"log/slog"
	"strings"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PlainExtractor decodes text files: UTF-8 by default, UTF-16 when a BOM says so.
// Invalid sequences become U+FFFD.
type PlainExtractor struct{}

func (p *PlainExtractor) Extract(_ context.Context, name string, data []byte) (string, error) {
	decoder := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		slog.Warn("plain extract", "name", name, "error", err)
		return "", nil
	}
	return strings.ReplaceAll(string(out), "\x00", ""), nil
}

var _ Extractor = (*PlainExtractor)(nil)
