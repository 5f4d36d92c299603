//go:build js && wasm

// Package dom renders the board into the browser document and forwards native
// drag, change and click events to a board.Controller.
//
// Columns are elements carrying a data-card-category attribute; each holds a
// .card-container the cards are appended to.
package dom

import (
	"fmt"
	"sync"
	"syscall/js"

	"kanban-board/board"
)

const (
	categoryAttr = "data-card-category"

	dragCardKey   = "cardID"
	dragColumnKey = "columnType"
)

// Controller is the subset of board.Controller the event handlers call.
type Controller interface {
	CreateDraft(category string) (board.Handle, error)
	CommitEdit(h board.Handle, title string)
	MoveCard(elementID, from, to string)
	DeleteCard(h board.Handle)
	DragStart(elementID string)
	DragEnd()
}

// View implements board.View over the live document.
type View struct {
	doc js.Value

	mu       sync.Mutex
	elements map[board.Handle]js.Value
	funcs    []js.Func
	ctrl     Controller
}

var _ board.View = (*View)(nil)

// New returns a view over the global document.
func New() *View {
	return &View{
		doc:      js.Global().Get("document"),
		elements: make(map[board.Handle]js.Value),
	}
}

// Bind routes DOM events to ctrl and exposes window.createCard(category) for
// the "new card" buttons. Handlers run on their own goroutine because JS
// callbacks must not block.
func (v *View) Bind(ctrl Controller) {
	v.mu.Lock()
	v.ctrl = ctrl
	v.mu.Unlock()

	for _, column := range v.columnElements() {
		container := column.Call("querySelector", ".card-container")
		if container.IsNull() {
			continue
		}
		category := column.Call("getAttribute", categoryAttr).String()
		container.Set("ondragenter", v.handler(func(event js.Value) {
			event.Get("target").Get("classList").Call("add", "hover")
		}))
		container.Set("ondragleave", v.handler(func(event js.Value) {
			event.Get("target").Get("classList").Call("remove", "hover")
		}))
		container.Set("ondragover", v.handler(func(event js.Value) {
			event.Call("preventDefault")
		}))
		container.Set("ondrop", v.handler(func(event js.Value) {
			event.Call("preventDefault")
			event.Get("target").Get("classList").Call("remove", "hover")
			transfer := event.Get("dataTransfer")
			from := transfer.Call("getData", dragColumnKey).String()
			elementID := transfer.Call("getData", dragCardKey).String()
			go ctrl.MoveCard(elementID, from, category)
		}))
	}

	js.Global().Set("createCard", v.handler(func(event js.Value) {
		category := event.String()
		if event.Type() == js.TypeObject {
			category = event.Get("target").Get("parentNode").Call("getAttribute", categoryAttr).String()
		}
		go func() {
			if _, err := ctrl.CreateDraft(category); err != nil {
				js.Global().Get("console").Call("error", err.Error())
			}
		}()
	}))
}

// Release frees every callback registered by the view.
func (v *View) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, fn := range v.funcs {
		fn.Release()
	}
	v.funcs = nil
}

func (v *View) Columns() []string {
	var out []string
	for _, column := range v.columnElements() {
		out = append(out, column.Call("getAttribute", categoryAttr).String())
	}
	return out
}

func (v *View) HasColumn(category string) bool {
	return !v.container(category).IsNull()
}

func (v *View) MountCard(h board.Handle, category, title string) error {
	container := v.container(category)
	if container.IsNull() {
		return fmt.Errorf("no column for category %q", category)
	}

	card := v.doc.Call("createElement", "div")
	card.Set("className", "card")
	card.Call("setAttribute", "draggable", "true")
	card.Call("setAttribute", "data-handle", string(h))

	del := v.doc.Call("createElement", "div")
	del.Set("className", "card-delete")
	del.Set("textContent", "x")

	input := v.doc.Call("createElement", "textarea")
	input.Call("setAttribute", "rows", 3)
	input.Call("setAttribute", "name", "title")
	input.Set("className", "card-title")
	input.Set("value", title)

	card.Call("appendChild", del)
	card.Call("appendChild", input)

	v.mu.Lock()
	ctrl := v.ctrl
	v.elements[h] = card
	v.mu.Unlock()

	if ctrl != nil {
		card.Set("ondragstart", v.handler(func(event js.Value) {
			transfer := event.Get("dataTransfer")
			transfer.Call("setData", dragColumnKey, categoryOf(card))
			transfer.Call("setData", dragCardKey, card.Get("id").String())
			go ctrl.DragStart(card.Get("id").String())
		}))
		card.Set("ondragend", v.handler(func(js.Value) {
			go ctrl.DragEnd()
		}))
		input.Set("onchange", v.handler(func(event js.Value) {
			title := event.Get("target").Get("value").String()
			go ctrl.CommitEdit(h, title)
		}))
		del.Set("onclick", v.handler(func(js.Value) {
			go ctrl.DeleteCard(h)
		}))
	}

	container.Call("appendChild", card)
	return nil
}

func (v *View) SetElementID(h board.Handle, elementID string) {
	if el, ok := v.element(h); ok {
		el.Set("id", elementID)
	}
}

func (v *View) MoveCard(h board.Handle, category string) error {
	el, ok := v.element(h)
	if !ok {
		return fmt.Errorf("card element %s not mounted", h)
	}
	container := v.container(category)
	if container.IsNull() {
		return fmt.Errorf("no column for category %q", category)
	}
	container.Call("appendChild", el)
	return nil
}

func (v *View) SetTitle(h board.Handle, title string) {
	if el, ok := v.element(h); ok {
		input := el.Call("querySelector", ".card-title")
		if !input.IsNull() && input.Get("value").String() != title {
			input.Set("value", title)
		}
	}
}

func (v *View) RemoveCard(h board.Handle) {
	v.mu.Lock()
	el, ok := v.elements[h]
	delete(v.elements, h)
	v.mu.Unlock()
	if ok {
		el.Call("remove")
	}
}

func (v *View) Focus(h board.Handle) {
	if el, ok := v.element(h); ok {
		if input := el.Call("querySelector", ".card-title"); !input.IsNull() {
			input.Call("focus")
		}
	}
}

func (v *View) SetStatus(h board.Handle, status board.Status) {
	if el, ok := v.element(h); ok {
		el.Get("dataset").Set("status", status.String())
	}
}

func (v *View) MarkDropTarget(category string) {
	if container := v.container(category); !container.IsNull() {
		container.Get("classList").Call("add", "hoverable")
	}
}

func (v *View) ClearDropTargets() {
	containers := v.doc.Call("querySelectorAll", ".card-container")
	for i := 0; i < containers.Length(); i++ {
		containers.Index(i).Get("classList").Call("remove", "hoverable")
	}
}

func (v *View) element(h board.Handle) (js.Value, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	el, ok := v.elements[h]
	return el, ok
}

func (v *View) columnElements() []js.Value {
	nodes := v.doc.Call("querySelectorAll", "["+categoryAttr+"]")
	out := make([]js.Value, 0, nodes.Length())
	for i := 0; i < nodes.Length(); i++ {
		out = append(out, nodes.Index(i))
	}
	return out
}

func (v *View) container(category string) js.Value {
	for _, column := range v.columnElements() {
		if column.Call("getAttribute", categoryAttr).String() == category {
			return column.Call("querySelector", ".card-container")
		}
	}
	return js.Null()
}

func (v *View) handler(fn func(event js.Value)) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		event := js.Undefined()
		if len(args) > 0 {
			event = args[0]
		}
		fn(event)
		return nil
	})
	v.mu.Lock()
	v.funcs = append(v.funcs, f)
	v.mu.Unlock()
	return f
}

// categoryOf reads the category of the column holding card, or "" when the
// card is not mounted in one.
func categoryOf(card js.Value) string {
	column := card
	for range 2 {
		column = column.Get("parentNode")
		if column.IsNull() || column.IsUndefined() {
			return ""
		}
	}
	if category := column.Call("getAttribute", categoryAttr); category.Type() == js.TypeString {
		return category.String()
	}
	return ""
}
