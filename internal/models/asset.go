package models

import (
	"fmt"
	"strings"
)

// AssetType is the kind of visual element an asset describes.
type AssetType string

const (
	AssetFigure   AssetType = "Figure"
	AssetTable    AssetType = "Table"
	AssetImage    AssetType = "Image"
	AssetEquation AssetType = "Equation"
	AssetMap      AssetType = "Map"
	AssetGraph    AssetType = "Graph"
)

// AssetTypes lists every accepted asset type in display order.
var AssetTypes = []AssetType{AssetFigure, AssetTable, AssetImage, AssetEquation, AssetMap, AssetGraph}

// ParseAssetType matches s case-insensitively against the known asset types.
func ParseAssetType(s string) (AssetType, error) {
	s = strings.TrimSpace(s)
	for _, t := range AssetTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// BoundingBox is a rectangle in percent (0-100) of a page's rendered size.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Asset is one extracted figure, table, image, equation, map or graph.
type Asset struct {
	ID          string       `json:"id"`
	AssetID     string       `json:"assetId"`
	AssetType   AssetType    `json:"assetType"`
	PageNumber  int          `json:"pageNumber"`
	Preview     string       `json:"preview"`
	AltText     string       `json:"altText"`
	Keywords    []string     `json:"keywords"`
	Taxonomy    string       `json:"taxonomy"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// Clone returns a deep copy so callers never alias collection state.
func (a Asset) Clone() Asset {
	out := a
	out.Keywords = append([]string(nil), a.Keywords...)
	if a.BoundingBox != nil {
		box := *a.BoundingBox
		out.BoundingBox = &box
	}
	return out
}

// AssetDescriptor is what the metadata service returns for a detected asset.
type AssetDescriptor struct {
	AssetID     string       `json:"assetId"`
	AssetType   AssetType    `json:"assetType"`
	Preview     string       `json:"preview"`
	AltText     string       `json:"altText"`
	Keywords    []string     `json:"keywords"`
	Taxonomy    string       `json:"taxonomy"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
	// PageNumber is only populated in whole-document mode; 0 means unknown.
	PageNumber int `json:"pageNumber,omitempty"`
}

// PageGeometry is a page's size in display units at the session's display scale.
type PageGeometry struct {
	PageIndex int     `json:"pageIndex"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// ImagePayload is an encoded raster handed to the metadata service.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// DocumentPayload is a whole document handed to the metadata service.
type DocumentPayload struct {
	FileName string
	MIMEType string
	URL      string
	Text     string
	Data     []byte
}
