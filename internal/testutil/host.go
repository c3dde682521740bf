package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/tomyan/mediactl/internal/bridge"
)

// Host is an in-process page for tests. It parses an HTML document and runs
// scripts in a goja runtime where window is the global object and document
// offers getElementById, getElementsByTagName and XPath evaluate. Every
// element found through document behaves like a paused media element with
// play, pause, volume and event listener support; nothing plays by itself,
// so tests fire events with Dispatch.
//
// Host implements bridge.Bridge. It is safe for concurrent use.
type Host struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	root    *html.Node
	nodes   []*html.Node
	keys    map[*html.Node]int
	wrap    goja.Callable
	scripts []string
}

const prelude = `(function (global, host) {
	var elements = {};

	function MediaElement(d) {
		this.id = d.id;
		this.tagName = d.tagName;
		this.currentSrc = d.src;
		this.currentTime = 0;
		this.duration = d.duration;
		this.paused = true;
		this.muted = d.muted;
		this.clientWidth = d.width;
		this.clientHeight = d.height;
		this._volume = 1;
		this._listeners = {};
	}
	MediaElement.prototype.play = function () { this.paused = false; };
	MediaElement.prototype.pause = function () { this.paused = true; };
	Object.defineProperty(MediaElement.prototype, 'volume', {
		get: function () { return this._volume; },
		set: function (v) {
			if (!(v >= 0 && v <= 1)) {
				throw new RangeError("The volume provided (" + v + ") is outside the range [0, 1].");
			}
			this._volume = v;
		}
	});
	MediaElement.prototype.addEventListener = function (type, fn) {
		if (fn == null) { return; }
		var list = this._listeners[type] || (this._listeners[type] = []);
		if (list.indexOf(fn) < 0) { list.push(fn); }
	};
	MediaElement.prototype.removeEventListener = function (type, fn) {
		var list = this._listeners[type];
		if (!list) { return; }
		var i = list.indexOf(fn);
		if (i >= 0) { list.splice(i, 1); }
	};
	MediaElement.prototype.dispatchEvent = function (ev) {
		var list = (this._listeners[ev.type] || []).slice();
		for (var i = 0; i < list.length; i++) { list[i].call(this, ev); }
		return true;
	};

	function wrap(key) {
		if (key === null || key === undefined) { return null; }
		var el = elements[key];
		if (!el) { el = elements[key] = new MediaElement(host.describe(key)); }
		return el;
	}

	global.window = global;
	global.XPathResult = { FIRST_ORDERED_NODE_TYPE: 9 };
	global.document = {
		getElementById: function (id) { return wrap(host.byId(String(id))); },
		getElementsByTagName: function (tag) { return host.byTag(String(tag)).map(wrap); },
		evaluate: function (path) { return { singleNodeValue: wrap(host.xpath(String(path))) }; }
	};
	return wrap;
})`

// NewHost parses page and prepares a runtime for it.
func NewHost(page string) (*Host, error) {
	root, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	h := &Host{
		vm:   goja.New(),
		root: root,
		keys: make(map[*html.Node]int),
	}

	setup, err := h.vm.RunString(prelude)
	if err != nil {
		return nil, fmt.Errorf("loading prelude: %w", err)
	}
	fn, ok := goja.AssertFunction(setup)
	if !ok {
		return nil, errors.New("prelude is not a function")
	}
	wrapValue, err := fn(goja.Undefined(), h.vm.GlobalObject(), h.hostObject())
	if err != nil {
		return nil, fmt.Errorf("running prelude: %w", err)
	}
	if h.wrap, ok = goja.AssertFunction(wrapValue); !ok {
		return nil, errors.New("prelude did not return the element wrapper")
	}
	return h, nil
}

// MustHost is NewHost for fixed test pages.
func MustHost(page string) *Host {
	h, err := NewHost(page)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *Host) Execute(ctx context.Context, script string) error {
	_, err := h.run(ctx, script)
	return err
}

func (h *Host) Evaluate(ctx context.Context, script string) (bridge.Scalar, error) {
	v, err := h.run(ctx, script)
	if err != nil {
		return bridge.Scalar{}, err
	}
	return toScalar(v)
}

func (h *Host) run(ctx context.Context, script string) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.scripts = append(h.scripts, script)
	v, err := h.vm.RunString(script)
	if err != nil {
		return nil, scriptError(script, err)
	}
	return v, nil
}

// Scripts returns every script run so far, in order.
func (h *Host) Scripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.scripts...)
}

// Dispatch fires event times on the element with the given id attribute.
func (h *Host) Dispatch(id, event string, times int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	node := h.byID(id)
	if node == nil {
		return fmt.Errorf("no element with id %q", id)
	}
	el, err := h.wrap(goja.Undefined(), h.vm.ToValue(h.key(node)))
	if err != nil {
		return err
	}
	obj := el.ToObject(h.vm)
	dispatch, ok := goja.AssertFunction(obj.Get("dispatchEvent"))
	if !ok {
		return fmt.Errorf("element %q has no dispatchEvent", id)
	}

	ev := h.vm.NewObject()
	if err := ev.Set("type", event); err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := dispatch(obj, ev); err != nil {
			return scriptError("dispatch "+event, err)
		}
	}
	return nil
}

func (h *Host) hostObject() *goja.Object {
	obj := h.vm.NewObject()
	obj.Set("byId", func(id string) goja.Value {
		return h.keyValue(h.byID(id))
	})
	obj.Set("byTag", func(tag string) goja.Value {
		nodes, err := htmlquery.QueryAll(h.root, "//"+strings.ToLower(tag))
		if err != nil {
			panic(h.vm.NewTypeError(err.Error()))
		}
		vals := make([]interface{}, 0, len(nodes))
		for _, n := range nodes {
			vals = append(vals, h.key(n))
		}
		return h.vm.NewArray(vals...)
	})
	obj.Set("xpath", func(path string) goja.Value {
		node, err := htmlquery.Query(h.root, path)
		if err != nil {
			panic(h.vm.NewTypeError("Failed to execute 'evaluate' on 'Document': " + err.Error()))
		}
		return h.keyValue(node)
	})
	obj.Set("describe", func(key int) *goja.Object {
		return h.describe(h.nodes[key])
	})
	return obj
}

func (h *Host) byID(id string) *html.Node {
	for _, n := range htmlquery.Find(h.root, "//*[@id]") {
		if htmlquery.SelectAttr(n, "id") == id {
			return n
		}
	}
	return nil
}

func (h *Host) key(n *html.Node) int {
	if k, ok := h.keys[n]; ok {
		return k
	}
	h.nodes = append(h.nodes, n)
	h.keys[n] = len(h.nodes) - 1
	return h.keys[n]
}

func (h *Host) keyValue(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return h.vm.ToValue(h.key(n))
}

func (h *Host) describe(n *html.Node) *goja.Object {
	d := h.vm.NewObject()
	d.Set("id", htmlquery.SelectAttr(n, "id"))
	d.Set("tagName", strings.ToUpper(n.Data))
	d.Set("src", sourceOf(n))
	d.Set("duration", floatAttr(n, "data-duration", math.NaN()))
	d.Set("width", floatAttr(n, "width", 0))
	d.Set("height", floatAttr(n, "height", 0))
	d.Set("muted", hasAttr(n, "muted"))
	return d
}

func sourceOf(n *html.Node) string {
	if src := htmlquery.SelectAttr(n, "src"); src != "" {
		return src
	}
	if s := htmlquery.FindOne(n, "./source[@src]"); s != nil {
		return htmlquery.SelectAttr(s, "src")
	}
	return ""
}

func floatAttr(n *html.Node, name string, def float64) float64 {
	if v, err := strconv.ParseFloat(htmlquery.SelectAttr(n, name), 64); err == nil {
		return v
	}
	return def
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func toScalar(v goja.Value) (bridge.Scalar, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return bridge.NullValue(), nil
	}
	switch x := v.Export().(type) {
	case string:
		return bridge.StringValue(x), nil
	case bool:
		return bridge.BoolValue(x), nil
	case int64:
		return bridge.NumberValue(float64(x)), nil
	case float64:
		return bridge.NumberValue(x), nil
	default:
		if _, ok := goja.AssertFunction(v); ok {
			return bridge.Scalar{}, &bridge.TypeError{Want: "scalar", Got: "function"}
		}
		return bridge.Scalar{}, &bridge.TypeError{Want: "scalar", Got: "object"}
	}
}

func scriptError(script string, err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &bridge.ScriptError{Script: script, Message: exc.Value().String(), Err: err}
	}
	return &bridge.ScriptError{Script: script, Message: err.Error(), Err: err}
}
