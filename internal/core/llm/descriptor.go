package llm

import (
	"encoding/json"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func assetTypeNames() []string {
	out := make([]string, len(models.AssetTypes))
	for i, t := range models.AssetTypes {
		out[i] = string(t)
	}
	return out
}

func descriptorSchema(withBox, withPage bool) *genai.Schema {
	s := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"assetId":   {Type: genai.TypeString},
			"assetType": {Type: genai.TypeString, Enum: assetTypeNames()},
			"preview":   {Type: genai.TypeString},
			"altText":   {Type: genai.TypeString},
			"keywords":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"taxonomy":  {Type: genai.TypeString},
		},
		Required: []string{"assetId", "assetType", "preview", "altText", "keywords", "taxonomy"},
	}
	if withBox {
		s.Properties["boundingBox"] = &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"x":      {Type: genai.TypeNumber},
				"y":      {Type: genai.TypeNumber},
				"width":  {Type: genai.TypeNumber},
				"height": {Type: genai.TypeNumber},
			},
			Required: []string{"x", "y", "width", "height"},
		}
	}
	if withPage {
		s.Properties["pageNumber"] = &genai.Schema{Type: genai.TypeInteger}
	}
	return s
}

// descriptorListSchema describes page (with boxes) or document (with page numbers) responses.
func descriptorListSchema(page bool) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: descriptorSchema(page, !page)}
}

// stripFences removes a markdown code fence around a JSON body.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// parseDescriptors accepts a bare array, an {"assets": [...]} wrapper or a single object.
func parseDescriptors(raw string) ([]models.AssetDescriptor, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, core.ServiceError("metadata service returned an empty response", nil)
	}

	var list []models.AssetDescriptor
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, core.ServiceError("metadata service returned malformed data", err)
		}
	case '{':
		var wrapped struct {
			Assets *[]models.AssetDescriptor `json:"assets"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, core.ServiceError("metadata service returned malformed data", err)
		}
		if wrapped.Assets != nil {
			list = *wrapped.Assets
			break
		}
		d, err := parseDescriptor(body)
		if err != nil {
			return nil, err
		}
		list = []models.AssetDescriptor{*d}
	default:
		return nil, core.ServiceError("metadata service returned malformed data", nil)
	}

	for i := range list {
		if err := validate(&list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func parseDescriptor(raw string) (*models.AssetDescriptor, error) {
	body := stripFences(raw)
	if strings.HasPrefix(body, "[") {
		list, err := parseDescriptors(body)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, core.ServiceError("metadata service returned no asset", nil)
		}
		return &list[0], nil
	}
	var d models.AssetDescriptor
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, core.ServiceError("metadata service returned malformed data", err)
	}
	if err := validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func validate(d *models.AssetDescriptor) error {
	t, err := models.ParseAssetType(string(d.AssetType))
	if err != nil {
		return core.ServiceError("metadata service returned malformed data", err)
	}
	d.AssetType = t
	if strings.TrimSpace(d.AltText) == "" {
		return core.ServiceError("metadata service returned an asset without alt text", nil)
	}
	if d.Keywords == nil {
		d.Keywords = []string{}
	}
	return nil
}
