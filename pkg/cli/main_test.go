package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCommand()

	want := map[string]bool{"serve": false, "check": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q is missing", name)
		}
	}

	if root.PersistentFlags().Lookup("config-file") == nil {
		t.Error("persistent --config-file flag is missing")
	}
}

func TestVersionCommandPrintsBuildInfo(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out.String(), serviceName+"@") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestServeRejectsInvalidConfigFile(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"serve", "--config-file", "/does/not/exist.yaml"})
	if err := root.Execute(); err == nil {
		t.Fatal("serve with a missing config file should fail")
	}
}
