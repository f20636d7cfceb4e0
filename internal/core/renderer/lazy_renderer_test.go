package renderer

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core/coretest"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func newTestRenderer(doc *coretest.FakeDocument, opts LazyOptions) *LazyRenderer {
	if opts.Scale == 0 {
		opts.Scale = 0.5
	}
	return NewLazyRenderer(doc, opts, zerolog.Nop())
}

func TestLazyRenderer_ObserveRendersOnce(t *testing.T) {
	doc := coretest.NewFakeDocument(3)
	r := newTestRenderer(doc, LazyOptions{})

	assert.Equal(t, []PageState{PageUnobserved, PageUnobserved, PageUnobserved}, r.States())

	assert.True(t, r.Observe(1))
	assert.False(t, r.Observe(1))
	r.Wait()
	assert.False(t, r.Observe(1))

	assert.Equal(t, 1, doc.RenderCount(1))
	s, ok := r.Surface(1)
	require.True(t, ok)
	assert.Equal(t, PageRendered, s.State)
	assert.Equal(t, "image/png", s.Image.MIMEType)
	assert.NotEmpty(t, s.Image.Data)
	assert.Equal(t, 306, s.Width)
	assert.Equal(t, 396, s.Height)
	assert.Equal(t, PageUnobserved, r.States()[0])
}

func TestLazyRenderer_OutOfRange(t *testing.T) {
	r := newTestRenderer(coretest.NewFakeDocument(1), LazyOptions{})
	assert.False(t, r.Observe(-1))
	assert.False(t, r.Observe(1))
	_, ok := r.Surface(4)
	assert.False(t, ok)
}

func TestLazyRenderer_FailureIsTerminal(t *testing.T) {
	doc := coretest.NewFakeDocument(2)
	doc.FailPages[0] = errors.New("bad xref")

	var settled []PageState
	r := newTestRenderer(doc, LazyOptions{OnSettled: func(_ int, s PageState) { settled = append(settled, s) }})

	require.True(t, r.Observe(0))
	r.Wait()

	s, _ := r.Surface(0)
	assert.Equal(t, PageFailed, s.State)
	assert.Contains(t, s.Err, "bad xref")
	assert.False(t, r.Observe(0))
	assert.Equal(t, []PageState{PageFailed}, settled)
}

func TestLazyRenderer_TeardownDiscardsInFlight(t *testing.T) {
	doc := coretest.NewFakeDocument(2)
	doc.Gate = make(chan struct{})
	settledCalls := 0
	r := newTestRenderer(doc, LazyOptions{OnSettled: func(int, PageState) { settledCalls++ }})

	require.True(t, r.Observe(0))
	r.Teardown()
	close(doc.Gate)
	r.Wait()

	s, _ := r.Surface(0)
	assert.Equal(t, PageCancelled, s.State)
	assert.Empty(t, s.Image.Data)
	assert.Zero(t, settledCalls)
	assert.False(t, r.Observe(1), "no renders start after teardown")
}

func TestLazyRenderer_ViewportChanged(t *testing.T) {
	doc := coretest.NewFakeDocument(5)
	r := newTestRenderer(doc, LazyOptions{PreloadMargin: 500, Concurrency: 2})

	pages := make([]models.PageGeometry, 5)
	for i := range pages {
		pages[i] = models.PageGeometry{PageIndex: i, Width: 600, Height: 800}
	}
	layout := geometry.Layout(pages, 0)

	observed := r.ViewportChanged(layout, geometry.Viewport{ScrollTop: 0, Height: 700})
	assert.Equal(t, []int{0, 1}, observed)

	observed = r.ViewportChanged(layout, geometry.Viewport{ScrollTop: 800, Height: 700})
	assert.Equal(t, []int{2}, observed, "pages already observed are not observed again")
	r.Wait()

	assert.Equal(t, []PageState{PageRendered, PageRendered, PageRendered, PageUnobserved, PageUnobserved}, r.States())
	assert.Equal(t, 3, doc.TotalRenders())
}
