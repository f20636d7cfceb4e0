// Package coretest holds in-memory doubles of the core collaborators for tests.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Letter is a US-letter page in points.
var Letter = [2]float64{612, 792}

// FakeDocument renders blank rasters and counts renders per page.
type FakeDocument struct {
	Sizes     [][2]float64
	FailPages map[int]error
	// Gate, when set, holds every render until it is closed or ctx ends.
	Gate chan struct{}

	mu      sync.Mutex
	renders map[int]int
	closed  bool
}

func NewFakeDocument(pages int) *FakeDocument {
	sizes := make([][2]float64, pages)
	for i := range sizes {
		sizes[i] = Letter
	}
	return &FakeDocument{Sizes: sizes, FailPages: map[int]error{}, renders: map[int]int{}}
}

func (d *FakeDocument) PageCount() int { return len(d.Sizes) }

func (d *FakeDocument) PageNativeSize(i int) (float64, float64, error) {
	if i < 0 || i >= len(d.Sizes) {
		return 0, 0, fmt.Errorf("page %d out of range", i)
	}
	return d.Sizes[i][0], d.Sizes[i][1], nil
}

func (d *FakeDocument) RenderPage(ctx context.Context, i int, scale float64) (image.Image, error) {
	d.mu.Lock()
	d.renders[i]++
	gate := d.Gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := d.FailPages[i]; ok {
		return nil, core.RenderError(fmt.Sprintf("failed to render page %d", i+1), err)
	}
	w, h, err := d.PageNativeSize(i)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(math.Round(w*scale)), int(math.Round(h*scale))))
	img.Set(0, 0, color.Black)
	return img, nil
}

func (d *FakeDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// RenderCount reports how many rasterizations page i received.
func (d *FakeDocument) RenderCount(i int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders[i]
}

// TotalRenders sums render calls across pages.
func (d *FakeDocument) TotalRenders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.renders {
		n += c
	}
	return n
}

func (d *FakeDocument) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeBackend hands out prepared documents in order.
type FakeBackend struct {
	Docs []*FakeDocument
	Err  error

	mu     sync.Mutex
	opened int
}

func (b *FakeBackend) Open(data []byte) (core.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	if b.opened >= len(b.Docs) {
		return nil, errors.New("no more fake documents")
	}
	d := b.Docs[b.opened]
	b.opened++
	return d, nil
}

func (b *FakeBackend) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// FakeMetadataService replays scripted descriptors.
// Page calls are answered in call order: the n-th DescribePage call gets PageResponses[n].
type FakeMetadataService struct {
	PageResponses [][]models.AssetDescriptor
	PageErrors    map[int]error
	Region        *models.AssetDescriptor
	RegionErr     error
	// RegionGate, when set, holds DescribeRegion until closed or ctx ends.
	RegionGate chan struct{}
	Document   []models.AssetDescriptor
	DocumentErr error

	mu             sync.Mutex
	pageCalls      int
	regionPayloads []models.ImagePayload
	documents      []models.DocumentPayload
}

func (f *FakeMetadataService) DescribePage(ctx context.Context, img models.ImagePayload) ([]models.AssetDescriptor, error) {
	f.mu.Lock()
	n := f.pageCalls
	f.pageCalls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.PageErrors[n]; ok {
		return nil, core.ServiceError("metadata generation failed", err)
	}
	if n < len(f.PageResponses) {
		return append([]models.AssetDescriptor(nil), f.PageResponses[n]...), nil
	}
	return nil, nil
}

func (f *FakeMetadataService) DescribeRegion(ctx context.Context, img models.ImagePayload) (*models.AssetDescriptor, error) {
	f.mu.Lock()
	f.regionPayloads = append(f.regionPayloads, img)
	gate := f.RegionGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.RegionErr != nil {
		return nil, core.ServiceError("metadata generation failed", f.RegionErr)
	}
	if f.Region == nil {
		return nil, core.ServiceError("metadata service returned no asset", nil)
	}
	d := *f.Region
	return &d, nil
}

func (f *FakeMetadataService) DescribeDocument(ctx context.Context, doc models.DocumentPayload) ([]models.AssetDescriptor, error) {
	f.mu.Lock()
	f.documents = append(f.documents, doc)
	f.mu.Unlock()
	if f.DocumentErr != nil {
		return nil, core.ServiceError("metadata generation failed", f.DocumentErr)
	}
	return append([]models.AssetDescriptor(nil), f.Document...), nil
}

func (f *FakeMetadataService) PageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls
}

func (f *FakeMetadataService) RegionPayloads() []models.ImagePayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ImagePayload(nil), f.regionPayloads...)
}

func (f *FakeMetadataService) Documents() []models.DocumentPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DocumentPayload(nil), f.documents...)
}

// FakeUsage is a fixed-cap accountant returning constant token counts.
type FakeUsage struct {
	Cap   int64
	Used  int64
	Usage models.TokenUsage

	mu    sync.Mutex
	tools []string
}

func NewFakeUsage(tokenCap int64) *FakeUsage {
	return &FakeUsage{Cap: tokenCap, Usage: models.TokenUsage{PromptTokens: 120, ResponseTokens: 30}}
}

func (u *FakeUsage) CheckBudget(ctx context.Context, userID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Used >= u.Cap {
		return core.BudgetExceededError("token budget exhausted", nil)
	}
	return nil
}

func (u *FakeUsage) RecordUsage(ctx context.Context, userID, toolName string) (models.TokenUsage, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tools = append(u.tools, toolName)
	u.Used += u.Usage.Total()
	return u.Usage, nil
}

// Tools lists recorded tool names in order.
func (u *FakeUsage) Tools() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.tools...)
}

// Descriptor is a terse constructor for scripted responses.
func Descriptor(label string, t models.AssetType, y float64) models.AssetDescriptor {
	return models.AssetDescriptor{
		AssetID:     label,
		AssetType:   t,
		Preview:     label + " preview",
		AltText:     label + " alt text",
		Keywords:    []string{"k1", "k2"},
		Taxonomy:    "Science > Biology",
		BoundingBox: &models.BoundingBox{X: 10, Y: y, Width: 30, Height: 20},
	}
}
