//go:build windows

package notification

import "testing"

func TestQuotePowerShell(t *testing.T) {
	if got := quotePowerShell("it's done"); got != "'it''s done'" {
		t.Fatalf("unexpected quoting: %s", got)
	}
}
