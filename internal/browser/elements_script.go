package browser

// snapshotScript lists the elements a semantic finder may pick from. Each row
// carries a selector that matches exactly that element at snapshot time.
const snapshotScript = `(() => {
	const limit = 300;
	const candidates = 'a, button, input, select, textarea, label, [role], [aria-label], [placeholder], [data-test-id], [data-testid], h1, h2, h3, h4, h5, h6';
	const describedAttrs = ['id', 'name', 'type', 'role', 'title', 'placeholder', 'aria-label', 'data-test-id', 'data-testid', 'href'];

	const unique = (sel) => {
		try {
			return document.querySelectorAll(sel).length === 1;
		} catch (e) {
			return false;
		}
	};

	const selectorFor = (el) => {
		const tag = el.tagName.toLowerCase();

		for (const attr of ['data-test-id', 'data-testid', 'id', 'name', 'aria-label', 'placeholder']) {
			const val = el.getAttribute(attr);
			if (!val) continue;

			const sel = tag + '[' + attr + '="' + CSS.escape(val) + '"]';
			if (unique(sel)) return sel;
		}

		const path = [];
		for (let cur = el; cur && cur.nodeType === 1 && cur !== document.documentElement; cur = cur.parentElement) {
			const t = cur.tagName.toLowerCase();
			if (cur.id && unique('#' + CSS.escape(cur.id))) {
				path.unshift('#' + CSS.escape(cur.id));
				break;
			}
			const index = Array.from(cur.parentElement ? cur.parentElement.children : []).indexOf(cur);
			path.unshift(index >= 0 ? t + ':nth-child(' + (index + 1) + ')' : t);
		}

		return path.join(' > ');
	};

	const result = [];
	for (const el of document.querySelectorAll(candidates)) {
		if (result.length >= limit) break;

		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';

		const attrs = {};
		for (const attr of describedAttrs) {
			const val = el.getAttribute(attr);
			if (val) attrs[attr] = val.substring(0, 100);
		}

		let text = (el.value || el.innerText || el.textContent || '').trim();
		if (text.length > 120) text = text.substring(0, 120) + '...';

		const tag = el.tagName.toLowerCase();
		result.push({
			tag: tag,
			text: text,
			selector: selectorFor(el),
			attributes: attrs,
			visible: visible,
			clickable: ['a', 'button', 'input', 'select', 'textarea'].includes(tag) ||
				el.getAttribute('role') === 'button' || style.cursor === 'pointer',
			x: Math.round(rect.left + rect.width / 2),
			y: Math.round(rect.top + rect.height / 2),
			width: Math.round(rect.width),
			height: Math.round(rect.height)
		});
	}

	return result;
})()`

// elementAtScript returns the topmost element under a viewport point.
const elementAtScript = `([x, y]) => document.elementFromPoint(x, y)`
