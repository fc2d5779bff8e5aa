package utils

import "testing"

func TestHTMLToText(t *testing.T) {
	html := `<blockquote class="twitter-tweet"><p lang="en" dir="ltr">Verifying my agent: agentchain-ABCD2345<br>#AgentChain</p>&mdash; Dead Beef (@deadbeef) <a href="https://twitter.com/deadbeef/status/1">January 1, 2026</a></blockquote><script>alert(1)</script>`

	got := HTMLToText(html)
	want := "Verifying my agent: agentchain-ABCD2345 #AgentChain — Dead Beef (@deadbeef) January 1, 2026"
	if got != want {
		t.Errorf("HTMLToText() = %q, want %q", got, want)
	}

	if HTMLToText("") != "" || HTMLToText("   ") != "" {
		t.Errorf("blank input should produce empty text")
	}
}
