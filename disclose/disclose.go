// Package disclose implements the accessible original-text popup.
//
// One shared popup instance serves every wrapper on the page; at any instant
// at most one is showing. Showing a new popup hides the previous one inside
// the same operation, never as a separate step that could race. While
// showing, the anchor wrapper carries an aria-describedby reference to the
// popup; the reference is removed on every transition back to hidden.
//
// The controller and the annotator are isolated failure domains: a panic in
// event handling is caught, logged, and never reaches the caller.
package disclose

import (
	"errors"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/travesty/annotate"
	"github.com/hazyhaar/travesty/dom"
	"github.com/hazyhaar/travesty/idgen"
	"github.com/hazyhaar/travesty/timing"
)

// PopupClass marks the shared popup element.
const PopupClass = "travesty-tip"

// State of the popup.
type State int

const (
	Hidden State = iota
	Showing
)

// EventType is one entry on the consumed event surface.
type EventType int

const (
	PointerOver EventType = iota
	PointerLeave
	FocusIn
	FocusOut
	KeyDown
	Scroll
)

// Event is one user-interaction event delivered to the controller.
type Event struct {
	Type   EventType
	Target *html.Node // event target; wrapper checks apply
	Key    string     // key name for KeyDown
}

// Config tunes the controller's scheduling. Pointer and scroll are
// high-frequency and throttled; focus/blur are discrete and never throttled;
// Escape is debounced so key repeat collapses into one dismissal.
type Config struct {
	PointerThrottle timing.Config
	ScrollThrottle  timing.Config
	EscapeDebounce  timing.Config
}

// Controller owns the shared popup and its state machine.
type Controller struct {
	doc    *dom.Document
	mut    *dom.Mutator
	logger *slog.Logger

	state    State
	activeID string
	anchor   *html.Node
	popup    *html.Node

	popupID string
	live    bool

	// pendingAnchor is the wrapper the throttled pointer path will show.
	pendingAnchor *html.Node
	pointerShow   func()
	scrollHide    func()
	escapeHide    func()
}

// New creates the controller and installs the popup element under <body>.
// Document and timing provider are required collaborators: failing here is
// an initialization error, raised to the caller, because degrading silently
// would leave originals undisclosable.
func New(doc *dom.Document, provider timing.Provider, cfg Config, logger *slog.Logger) (*Controller, error) {
	if doc == nil {
		return nil, errors.New("disclose: nil document")
	}
	if provider == nil {
		return nil, errors.New("disclose: nil timing provider")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		doc:     doc,
		mut:     doc.Mutator(),
		logger:  logger,
		popupID: idgen.Prefixed("tip_", idgen.NanoID(10))(),
		live:    true,
	}

	c.popup = dom.NewElement("div",
		html.Attribute{Key: "class", Val: PopupClass},
		html.Attribute{Key: "id", Val: c.popupID},
		html.Attribute{Key: "role", Val: "tooltip"},
		html.Attribute{Key: annotate.AttrUI, Val: "1"},
		html.Attribute{Key: "hidden", Val: ""},
	)
	c.popup.AppendChild(dom.NewText(""))

	if err := c.mut.AppendChild(doc.Body(), c.popup); err != nil {
		return nil, errors.New("disclose: install popup: " + err.Error())
	}

	c.pointerShow = provider.Throttle(c.firePointerShow, cfg.PointerThrottle)
	c.scrollHide = provider.Throttle(c.fireHide, cfg.ScrollThrottle)
	c.escapeHide = provider.Debounce(c.fireHide, cfg.EscapeDebounce)

	return c, nil
}

// HandleEvent consumes one interaction event. Per-event failures are caught
// and logged; the controller keeps serving later events.
func (c *Controller) HandleEvent(e Event) {
	if !c.live {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("disclose: event handling failed", "event", e.Type, "panic", r)
		}
	}()

	switch e.Type {
	case PointerOver:
		if !annotate.IsWrapper(e.Target) {
			return
		}
		c.pendingAnchor = e.Target
		c.pointerShow()

	case FocusIn:
		// Keyboard path is inherently discrete: show immediately.
		if !annotate.IsWrapper(e.Target) {
			return
		}
		c.show(e.Target)

	case PointerLeave:
		c.hide()

	case FocusOut:
		if c.state == Showing && e.Target == c.anchor {
			c.hide()
		}

	case Scroll:
		if c.state == Showing {
			c.scrollHide()
		}

	case KeyDown:
		if e.Key == "Escape" && c.state == Showing {
			c.escapeHide()
		}
	}
}

func (c *Controller) firePointerShow() {
	if !c.live || c.pendingAnchor == nil {
		return
	}
	c.show(c.pendingAnchor)
}

func (c *Controller) fireHide() {
	if !c.live {
		return
	}
	c.hide()
}

// show transitions to Showing anchored on the given wrapper. Hiding any
// previous anchor happens here, inside the same operation.
func (c *Controller) show(wrapper *html.Node) {
	original, ok := dom.Attr(wrapper, annotate.AttrOriginal)
	if !ok {
		c.logger.Warn("disclose: anchor has no original text, ignoring")
		return
	}
	repID, _ := dom.Attr(wrapper, annotate.AttrID)

	if c.state == Showing && c.anchor != wrapper {
		c.mut.DelAttr(c.anchor, "aria-describedby")
	}

	if err := c.mut.SetText(c.popup.FirstChild, original); err != nil {
		c.logger.Warn("disclose: set popup text", "error", err)
		return
	}
	c.mut.DelAttr(c.popup, "hidden")
	if err := c.mut.SetAttr(wrapper, "aria-describedby", c.popupID); err != nil {
		c.logger.Warn("disclose: set describedby", "error", err)
	}

	c.state = Showing
	c.anchor = wrapper
	c.activeID = repID
}

func (c *Controller) hide() {
	if c.state == Hidden {
		return
	}
	if c.anchor != nil {
		c.mut.DelAttr(c.anchor, "aria-describedby")
	}
	if err := c.mut.SetAttr(c.popup, "hidden", ""); err != nil {
		c.logger.Warn("disclose: hide popup", "error", err)
	}
	c.state = Hidden
	c.anchor = nil
	c.activeID = ""
	c.pendingAnchor = nil
}

// State returns the current popup state.
func (c *Controller) State() State { return c.state }

// ActiveID returns the replacement ID of the current anchor, empty when hidden.
func (c *Controller) ActiveID() string { return c.activeID }

// Anchor returns the current anchor wrapper, nil when hidden.
func (c *Controller) Anchor() *html.Node { return c.anchor }

// PopupText returns the text currently held by the popup.
func (c *Controller) PopupText() string {
	if c.popup == nil || c.popup.FirstChild == nil {
		return ""
	}
	return c.popup.FirstChild.Data
}

// PopupID returns the popup element's id, the target of aria-describedby.
func (c *Controller) PopupID() string { return c.popupID }

// Dispose tears the controller down: popup removed, state reset, liveness
// flag dropped so scheduled callbacks become no-ops. Errors are logged and
// never returned — teardown always completes.
func (c *Controller) Dispose() {
	if !c.live {
		return
	}
	c.hide()
	c.live = false

	if c.popup != nil && c.popup.Parent != nil {
		if err := c.mut.Remove(c.popup); err != nil {
			c.logger.Warn("disclose: remove popup", "error", err)
		}
	}

	c.state = Hidden
	c.activeID = ""
	c.anchor = nil
	c.popup = nil
	c.pendingAnchor = nil
	c.logger.Debug("disclose: disposed")
}
