package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/DonovanMods/everest-mod-updater/internal/core"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestProgressRenderer_LogsQuartersWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	r := newProgressRenderer(&buf, logger)
	assert.False(t, r.tty)

	total := int64(4 * 1024 * 1024)
	for downloaded := int64(0); downloaded <= total; downloaded += 64 * 1024 {
		r.Update(core.DownloadProgress{
			Label:      "ModA",
			TotalBytes: total,
			Downloaded: downloaded,
			Percentage: float64(downloaded) / float64(total) * 100,
		})
	}
	r.Update(core.DownloadProgress{Label: "ModA", TotalBytes: total, Downloaded: total, Percentage: 100, Done: true})

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "Downloading"), "25%, 50% and 75%")
	assert.Equal(t, 1, strings.Count(out, "Downloaded"))
	assert.Contains(t, out, "4.2 MB")
}

func TestProgressRenderer_UnknownSize(t *testing.T) {
	var buf bytes.Buffer
	r := newProgressRenderer(&buf, log.New(&buf))

	r.Update(core.DownloadProgress{Label: "ModA", Downloaded: 1000})
	assert.Empty(t, buf.String())

	r.Update(core.DownloadProgress{Label: "ModA", Downloaded: 2000, Done: true})
	assert.Contains(t, buf.String(), "Downloaded")
	assert.Contains(t, buf.String(), "2.0 kB")
}
