package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// GeminiMetadata implements core.MetadataService on Gemini with JSON-constrained output.
type GeminiMetadata struct {
	client    *genai.Client
	modelName string
	log       zerolog.Logger
}

func NewGeminiMetadata(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*GeminiMetadata, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiMetadata{
		client:    cl,
		modelName: modelName,
		log:       log.With().Str("component", "gemini").Str("model", modelName).Logger(),
	}, nil
}

func (g *GeminiMetadata) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiMetadata) DescribePage(ctx context.Context, img models.ImagePayload) ([]models.AssetDescriptor, error) {
	raw, err := g.generateJSON(ctx, pagePrompt, descriptorListSchema(true), imagePart(img), genai.Text(pageInstruction))
	if err != nil {
		return nil, err
	}
	return parseDescriptors(raw)
}

func (g *GeminiMetadata) DescribeRegion(ctx context.Context, img models.ImagePayload) (*models.AssetDescriptor, error) {
	raw, err := g.generateJSON(ctx, regionPrompt, descriptorSchema(false, false), imagePart(img), genai.Text(regionInstruction))
	if err != nil {
		return nil, err
	}
	return parseDescriptor(raw)
}

func (g *GeminiMetadata) DescribeDocument(ctx context.Context, doc models.DocumentPayload) ([]models.AssetDescriptor, error) {
	parts := []genai.Part{}
	switch {
	case len(doc.Data) > 0 && doc.MIMEType == "application/pdf":
		parts = append(parts, genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data})
	case doc.Text != "":
		parts = append(parts, genai.Text(fmt.Sprintf("Document %q:\n\n%s", documentName(doc), doc.Text)))
	case doc.URL != "":
		parts = append(parts, genai.Text("Document URL: "+doc.URL))
	default:
		return nil, core.InputValidationError("document has no content to describe", nil)
	}
	parts = append(parts, genai.Text(documentInstruction))

	raw, err := g.generateJSON(ctx, documentPrompt, descriptorListSchema(false), parts...)
	if err != nil {
		return nil, err
	}
	return parseDescriptors(raw)
}

func documentName(doc models.DocumentPayload) string {
	if doc.FileName != "" {
		return doc.FileName
	}
	return doc.URL
}

func imagePart(img models.ImagePayload) genai.Part {
	return genai.Blob{MIMEType: img.MIMEType, Data: img.Data}
}

func (g *GeminiMetadata) generateJSON(ctx context.Context, systemPrompt string, schema *genai.Schema, parts ...genai.Part) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = schema
	m.SetTemperature(0.2)

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", core.ServiceError("metadata generation failed", fmt.Errorf("gemini generate: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", core.ServiceError("metadata service returned no candidates", nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if resp.UsageMetadata != nil {
		g.log.Debug().
			Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("response_tokens", resp.UsageMetadata.CandidatesTokenCount).
			Msg("gemini call")
	}
	return b.String(), nil
}

var _ core.MetadataService = (*GeminiMetadata)(nil)
