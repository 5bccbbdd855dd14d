// Package chunk splits oversized reply text at UTF-8-safe byte boundaries so
// it fits Slack's per-message size limit.
package chunk

// Split cuts text at a boundary no greater than maxBytes without landing
// inside a multi-byte UTF-8 sequence: starting at min(maxBytes, len(text)),
// the cut steps backward over continuation bytes. head+tail reassembles text
// byte for byte; tail is empty when text already fits.
func Split(text string, maxBytes int) (head, tail string) {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text, ""
	}
	cut := maxBytes
	for cut > 0 && isContinuation(text[cut]) {
		cut--
	}
	return text[:cut], text[cut:]
}

func isContinuation(b byte) bool {
	return b&0xC0 == 0x80
}
