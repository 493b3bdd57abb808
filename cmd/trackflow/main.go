package main

import (
	"os"
	"strings"

	"trackflow-cli/internal/cli"

	"github.com/joho/godotenv"
)

// recordRef splits "lead:12" or "order:7" into the command group and id.
func recordRef(s string) (group, id string, ok bool) {
	kind, id, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || strings.TrimSpace(id) == "" {
		return "", "", false
	}
	switch strings.ToLower(kind) {
	case "lead":
		return "leads", id, true
	case "order":
		return "orders", id, true
	}
	return "", "", false
}

// rewriteRecordLookupArgs makes `trackflow lead:12` work like `trackflow leads show 12`.
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
// parsing. Persistent flags may come first, so the first positional token is the one
// that counts.
func rewriteRecordLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--api-url":   true,
		"--timeout":   true,
		"--format":    true,
		"--log-level": true,
	}

	rewrite := func(i int) []string {
		group, id, ok := recordRef(argv[i])
		if !ok {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, group, "show", id)
		return append(out, argv[i+1:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		return rewrite(i)
	}
	return argv
}

func main() {
	// A .env next to the binary's working dir may carry TRACKFLOW_* settings.
	_ = godotenv.Load()

	os.Args = rewriteRecordLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
