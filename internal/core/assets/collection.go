// Package assets keeps the ordered, user-editable set of extracted assets of one session.
package assets

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Field names an editable asset field.
type Field string

const (
	FieldAssetID   Field = "assetId"
	FieldAssetType Field = "assetType"
	FieldPreview   Field = "preview"
	FieldAltText   Field = "altText"
	FieldTaxonomy  Field = "taxonomy"
	FieldKeywords  Field = "keywords"
)

type entry struct {
	asset models.Asset
	seq   uint64
}

// Collection is safe for concurrent use. Iteration order is always the
// display order: page ascending, boxed assets by box top, then insertion order.
type Collection struct {
	mu       sync.RWMutex
	entries  []entry
	nextSeq  uint64
	selected string
}

func NewCollection() *Collection {
	return &Collection{}
}

// InsertAll adds assets and re-sorts. Each asset must carry an id.
func (c *Collection) InsertAll(newAssets []models.Asset) {
	if len(newAssets) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range newAssets {
		c.entries = append(c.entries, entry{asset: a.Clone(), seq: c.nextSeq})
		c.nextSeq++
	}
	slices.SortStableFunc(c.entries, compareEntries)
}

func compareEntries(a, b entry) int {
	if a.asset.PageNumber != b.asset.PageNumber {
		return a.asset.PageNumber - b.asset.PageNumber
	}
	ab, bb := a.asset.BoundingBox, b.asset.BoundingBox
	switch {
	case ab != nil && bb == nil:
		return -1
	case ab == nil && bb != nil:
		return 1
	case ab != nil && bb != nil && ab.Y != bb.Y:
		if ab.Y < bb.Y {
			return -1
		}
		return 1
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

func (c *Collection) indexOf(id string) int {
	for i := range c.entries {
		if c.entries[i].asset.ID == id {
			return i
		}
	}
	return -1
}

// UpdateField replaces one field. Unknown ids are ignored; a value whose type
// does not match the field is rejected.
func (c *Collection) UpdateField(id string, field Field, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	a := &models.Asset{}
	if i >= 0 {
		a = &c.entries[i].asset
	}

	switch field {
	case FieldAssetID, FieldPreview, FieldAltText, FieldTaxonomy:
		s, ok := value.(string)
		if !ok {
			return core.InputValidationError(fmt.Sprintf("%s must be a string", field), nil)
		}
		switch field {
		case FieldAssetID:
			a.AssetID = s
		case FieldPreview:
			a.Preview = s
		case FieldAltText:
			a.AltText = s
		case FieldTaxonomy:
			a.Taxonomy = s
		}
	case FieldAssetType:
		var t models.AssetType
		switch v := value.(type) {
		case models.AssetType:
			t = v
		case string:
			t = models.AssetType(v)
		default:
			return core.InputValidationError("assetType must be a string", nil)
		}
		parsed, err := models.ParseAssetType(string(t))
		if err != nil {
			return core.InputValidationError("invalid asset type", err)
		}
		a.AssetType = parsed
	case FieldKeywords:
		kw, err := toStrings(value)
		if err != nil {
			return err
		}
		a.Keywords = kw
	default:
		return core.InputValidationError(fmt.Sprintf("field %q is not editable", field), nil)
	}
	return nil
}

func toStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, core.InputValidationError("keywords must be strings", nil)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, core.InputValidationError("keywords must be a list of strings", nil)
}

// AddKeyword appends the trimmed text; blank text is ignored.
func (c *Collection) AddKeyword(id, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.entries[i].asset.Keywords = append(c.entries[i].asset.Keywords, text)
	}
}

// RemoveKeyword drops the keyword at index; out of range is a no-op.
func (c *Collection) RemoveKeyword(id string, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	kw := c.entries[i].asset.Keywords
	if index < 0 || index >= len(kw) {
		return
	}
	c.entries[i].asset.Keywords = slices.Delete(slices.Clone(kw), index, index+1)
}

// ReplaceAltText sets altText only, reporting whether the asset still exists.
func (c *Collection) ReplaceAltText(id, altText string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.entries[i].asset.AltText = altText
	return true
}

// Delete removes the asset and clears the selection if it pointed at it.
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.entries = slices.Delete(c.entries, i, i+1)
	if c.selected == id {
		c.selected = ""
	}
	return true
}

// Select highlights an existing asset.
func (c *Collection) Select(id string) (models.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.Asset{}, false
	}
	c.selected = id
	return c.entries[i].asset.Clone(), true
}

func (c *Collection) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func (c *Collection) ClearSelection() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

func (c *Collection) Get(id string) (models.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.Asset{}, false
	}
	return c.entries[i].asset.Clone(), true
}

// Snapshot returns a deep copy in display order.
func (c *Collection) Snapshot() []models.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Asset, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.asset.Clone()
	}
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset empties the collection for a new document load.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.selected = ""
}
