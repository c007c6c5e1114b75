package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextFieldsAppearInLogs(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(old)

	ctx := WithStage(WithVersion(WithProject(context.Background(), "my-project"), "1.2.0"), "pages")
	InfoContext(ctx, "page imported", slog.String("relpath", "usage"))

	out := buf.String()
	for _, want := range []string{"project=my-project", "version=1.2.0", "stage=pages", "relpath=usage"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}

func TestContextIsCopied(t *testing.T) {
	base := WithProject(context.Background(), "a")
	_ = WithProject(base, "b")
	if lc := extractLogContext(base); lc.Project != "a" {
		t.Fatalf("derived context mutated the parent: %+v", lc)
	}
}
