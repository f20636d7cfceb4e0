// Package selection implements the drag-to-select state machine used to
// request metadata for a hand-picked region of a page.
package selection

import (
	"fmt"
	"sync"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/models"
)

type State string

const (
	StateInactive   State = "inactive"
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateProposed   State = "proposed"
	StateGenerating State = "generating"
)

// Snapshot is the externally visible selection state.
type Snapshot struct {
	State     State               `json:"state"`
	Active    bool                `json:"active"`
	Dragging  bool                `json:"dragging"`
	PageIndex int                 `json:"pageIndex"`
	Start     *geometry.Point     `json:"dragStart,omitempty"`
	Rect      *models.BoundingBox `json:"currentRect,omitempty"`
}

// Proposal is a frozen selection handed to the generation step.
// Ticket identifies the generation cycle for Finish.
type Proposal struct {
	PageIndex int
	Box       models.BoundingBox
	Ticket    uint64
}

// Controller serializes one selection gesture at a time.
type Controller struct {
	mu    sync.Mutex
	clamp bool

	state     State
	pageIndex int
	pageRect  geometry.Rect
	start     geometry.Point
	rect      models.BoundingBox
	ticket    uint64
}

// NewController returns an inactive controller. With clampOnConfirm the
// proposal is limited to the page when generation begins; drags stay unclamped.
func NewController(clampOnConfirm bool) *Controller {
	return &Controller{clamp: clampOnConfirm, state: StateInactive}
}

func (c *Controller) conflict(op string) error {
	return core.ConflictError(fmt.Sprintf("cannot %s while selection is %s", op, c.state), nil)
}

func (c *Controller) reset(to State) {
	c.state = to
	c.pageIndex = 0
	c.pageRect = geometry.Rect{}
	c.start = geometry.Point{}
	c.rect = models.BoundingBox{}
}

// Toggle switches selection mode on or off. Turning it off discards any
// drag or proposal. It is refused while a region is being generated.
func (c *Controller) Toggle() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateGenerating:
		return c.state, c.conflict("toggle selection mode")
	case StateInactive:
		c.reset(StateIdle)
	default:
		c.reset(StateInactive)
	}
	return c.state, nil
}

// PointerDown starts a drag on the page whose container is pageRect.
func (c *Controller) PointerDown(pageIndex int, pointer geometry.Point, pageRect geometry.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return c.conflict("start a selection")
	}
	if pageRect.Width <= 0 || pageRect.Height <= 0 {
		return core.InputValidationError("page container has no size", nil)
	}
	c.state = StateDragging
	c.pageIndex = pageIndex
	c.pageRect = pageRect
	c.start = geometry.ToPercent(pointer, pageRect)
	c.rect = geometry.NormalizeRect(c.start, c.start)
	return nil
}

// PointerMove resizes the drag against the page captured at PointerDown.
func (c *Controller) PointerMove(pointer geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging {
		return c.conflict("move a selection")
	}
	c.rect = geometry.NormalizeRect(c.start, geometry.ToPercent(pointer, c.pageRect))
	return nil
}

// PointerUp freezes the rectangle and proposes it.
func (c *Controller) PointerUp(pointer geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging {
		return c.conflict("finish a selection")
	}
	c.rect = geometry.NormalizeRect(c.start, geometry.ToPercent(pointer, c.pageRect))
	c.state = StateProposed
	return nil
}

// Cancel dismisses the selection and leaves selection mode.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGenerating {
		return c.conflict("cancel")
	}
	c.reset(StateInactive)
	return nil
}

// BeginGenerate moves a proposal into generation. Only one generation runs at a time.
func (c *Controller) BeginGenerate() (Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateProposed {
		return Proposal{}, c.conflict("generate")
	}
	box := c.rect
	if c.clamp {
		box = geometry.Clamp(box)
	}
	c.rect = box
	c.state = StateGenerating
	c.ticket++
	return Proposal{PageIndex: c.pageIndex, Box: box, Ticket: c.ticket}, nil
}

// Finish ends the generation identified by ticket, successful or not, and
// leaves selection mode. A ticket from a cycle that was already reset is ignored.
func (c *Controller) Finish(ticket uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGenerating && c.ticket == ticket {
		c.reset(StateInactive)
	}
}

// Reset forces the controller back to inactive, e.g. on document load.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.reset(StateInactive)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:    c.state,
		Active:   c.state != StateInactive,
		Dragging: c.state == StateDragging,
	}
	switch c.state {
	case StateDragging, StateProposed, StateGenerating:
		start, rect := c.start, c.rect
		s.PageIndex = c.pageIndex
		s.Start = &start
		s.Rect = &rect
	}
	return s
}
