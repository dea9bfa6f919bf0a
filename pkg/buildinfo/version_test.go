package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if got := Template(); !strings.Contains(got, "version v1.2.3") {
		t.Errorf("Template() = %q, want version line", got)
	}
	if got := String(); !strings.HasPrefix(got, "version: v1.2.3\n") {
		t.Errorf("String() = %q", got)
	}
	if got := UserAgent(); got != "visstudy/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}
