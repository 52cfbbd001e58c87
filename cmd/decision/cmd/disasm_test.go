package cmd

import (
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func TestDisasmOutputMatchesSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeSheet(t, dir, "main.dec", "Start() ~ #1; Print(#1, 'hi') ~ #2; Print(#2, 1);\n")

	disasmWidth, disasmDebug, disasmOptimize = 64, true, false
	var disasmErr error
	output := captureStdout(t, func() {
		disasmErr = disasmSheet(disasmCmd, []string{path})
	})
	if disasmErr != nil {
		t.Fatalf("disasmSheet: %v\noutput: %s", disasmErr, output)
	}

	snaps.MatchSnapshot(t, "disasm_output", output)
}
