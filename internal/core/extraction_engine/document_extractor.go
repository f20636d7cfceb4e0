package extraction_engine

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
)

var _ core.TextExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
	log            zerolog.Logger
}

func NewDocconvExtractor(useReadability bool, log zerolog.Logger) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability, log: log.With().Str("component", "docconv").Logger()}
}

// ExtractText converts Word and HTML sources to plain text, dropping blank lines.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", core.InputValidationError("could not read document text", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lines := strings.Split(res.Body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		e.log.Warn().Str("content_type", contentType).Msg("extracted empty text")
	}
	return strings.Join(kept, "\n"), nil
}
