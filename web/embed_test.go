package web

import (
	"io"
	"io/fs"
	"strings"
	"testing"
)

func TestStaticFSServesAssets(t *testing.T) {
	sfs := StaticFS()
	for _, name := range []string{"app.css", "dashboard.js"} {
		data, err := fs.ReadFile(sfs, name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestPageHasDashboardRegions(t *testing.T) {
	data, err := io.ReadAll(Page())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<html") {
		t.Error("page template is not an HTML document")
	}
}
