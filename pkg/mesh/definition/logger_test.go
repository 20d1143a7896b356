package definition

import (
	"bytes"
	"strings"
	"testing"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

func TestDefaultLogger_DebugfGatedByGeneralMask(t *testing.T) {
	l := NewDefaultLogger(types.VerbosityError)
	var buf bytes.Buffer
	l.entry.Logger.Out = &buf

	l.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected Debugf to be suppressed without VerbosityGeneral, got %q", buf.String())
	}

	l.ToggleDebug(true)
	l.Debugf("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected Debugf to emit once VerbosityGeneral is enabled, got %q", buf.String())
	}
}

func TestDefaultLogger_ErrorfGatedByErrorMask(t *testing.T) {
	l := NewDefaultLogger(types.VerbosityGeneral)
	var buf bytes.Buffer
	l.entry.Logger.Out = &buf

	l.Errorf("boom")
	if buf.Len() != 0 {
		t.Fatalf("expected Errorf to be suppressed without VerbosityError, got %q", buf.String())
	}
}

func TestDefaultLogger_WarnfAlwaysEmits(t *testing.T) {
	l := NewDefaultLogger(0)
	var buf bytes.Buffer
	l.entry.Logger.Out = &buf

	l.Warnf("heads up")
	if !strings.Contains(buf.String(), "heads up") {
		t.Fatalf("expected Warnf to emit regardless of mask, got %q", buf.String())
	}
}

func TestDefaultLogger_InfofRespondsToStartupOrGeneral(t *testing.T) {
	l := NewDefaultLogger(types.VerbosityStartup)
	var buf bytes.Buffer
	l.entry.Logger.Out = &buf

	l.Infof("booting")
	if !strings.Contains(buf.String(), "booting") {
		t.Fatalf("expected Infof to emit under VerbosityStartup, got %q", buf.String())
	}
}

func TestDefaultLogger_ToggleDebugOffClearsGeneral(t *testing.T) {
	l := NewDefaultLogger(types.VerbosityGeneral)
	l.ToggleDebug(false)
	if l.mask.Has(types.VerbosityGeneral) {
		t.Fatalf("expected ToggleDebug(false) to clear VerbosityGeneral")
	}
}
