// File: internal/browser/js.go
package browser

import (
	"encoding/json"
	"fmt"
)

// The chromedp session addresses located nodes by absolute XPath: the path is
// computed once at locate time and stays valid as long as the node is
// attached, which is all the scraper needs between a lookup and the
// interaction that follows it.

// jsLocate matches a selector under an optional base XPath and returns the
// absolute XPath of every match, in document order.
const jsLocate = `(function(sel, baseXp) {
	function xpathOf(el) {
		if (!el || el.nodeType !== 1) return '';
		if (el === document.documentElement) return '/' + el.tagName.toLowerCase();
		var ix = 1;
		var sib = el.previousElementSibling;
		while (sib) {
			if (sib.tagName === el.tagName) ix++;
			sib = sib.previousElementSibling;
		}
		return xpathOf(el.parentElement) + '/' + el.tagName.toLowerCase() + '[' + ix + ']';
	}
	var root = document;
	if (baseXp) {
		var res = document.evaluate(baseXp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
		if (!res.singleNodeValue) return [];
		root = res.singleNodeValue;
	}
	var out = [];
	root.querySelectorAll(sel).forEach(function(el) { out.push(xpathOf(el)); });
	return out;
})(%s, %s)`

// jsClosest returns the absolute XPath of the nearest ancestor-or-self of the
// node at baseXp matching the selector, or the empty string.
const jsClosest = `(function(sel, baseXp) {
	function xpathOf(el) {
		if (!el || el.nodeType !== 1) return '';
		if (el === document.documentElement) return '/' + el.tagName.toLowerCase();
		var ix = 1;
		var sib = el.previousElementSibling;
		while (sib) {
			if (sib.tagName === el.tagName) ix++;
			sib = sib.previousElementSibling;
		}
		return xpathOf(el.parentElement) + '/' + el.tagName.toLowerCase() + '[' + ix + ']';
	}
	var res = document.evaluate(baseXp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	var node = res.singleNodeValue;
	if (!node || !node.closest) return '';
	var hit = node.closest(sel);
	return hit ? xpathOf(hit) : '';
})(%s, %s)`

// jsVisible reports whether the node at the XPath is rendered and visible.
const jsVisible = `(function(xp) {
	var res = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	var el = res.singleNodeValue;
	if (!el) return false;
	var style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
	var rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
})(%s)`

// jsForceClick clicks the node at the XPath via script, bypassing hit-target
// interception by overlays.
const jsForceClick = `(function(xp) {
	var res = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	var el = res.singleNodeValue;
	if (!el) return false;
	el.click();
	return true;
})(%s)`

// jsFill replaces an input's value through the native setter and dispatches
// input/change events so framework bindings (the identity provider is an
// Angular form) observe the change.
const jsFill = `(function(xp, value) {
	var res = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
	var el = res.singleNodeValue;
	if (!el) return false;
	var proto = el.tagName === 'TEXTAREA' ? window.HTMLTextAreaElement.prototype : window.HTMLInputElement.prototype;
	var setter = Object.getOwnPropertyDescriptor(proto, 'value');
	if (setter && setter.set) { setter.set.call(el, value); } else { el.value = value; }
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s, %s)`

// jsCall renders a JS template with JSON-encoded string arguments.
func jsCall(template string, args ...string) string {
	quoted := make([]interface{}, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		quoted[i] = string(b)
	}
	return fmt.Sprintf(template, quoted...)
}
