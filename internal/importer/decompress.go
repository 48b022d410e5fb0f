package importer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// readHAE returns the JSON inside an AutoSync .hae file. Files that are
// already plain JSON are returned as-is; everything else goes through the
// lzfse CLI.
func readHAE(ctx context.Context, path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimLeft(raw, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		return raw, nil
	}

	cmd := exec.CommandContext(ctx, "lzfse", "-decode")
	cmd.Stdin = bytes.NewReader(raw)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("lzfse decode %s: %w (stderr: %s)", path, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
