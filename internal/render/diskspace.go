package render

import (
	"fmt"

	"golang.org/x/sys/unix"

	"autotube/internal/services"
	"autotube/internal/stage"
)

// FreeMiB reports the space available to unprivileged users under dir.
func FreeMiB(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return int64(st.Bavail) * int64(st.Bsize) / (1 << 20), nil
}

func checkFreeSpace(dir string, minMiB int64) error {
	if minMiB <= 0 {
		return nil
	}
	free, err := FreeMiB(dir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(stage.NameRender), "preflight", "", err)
	}
	if free < minMiB {
		return services.Wrap(services.ErrExternalTool, string(stage.NameRender), "preflight",
			fmt.Sprintf("insufficient disk space: %d MiB free, %d MiB required", free, minMiB), nil)
	}
	return nil
}
