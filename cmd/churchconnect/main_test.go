package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchconnect/internal/config"
	"churchconnect/internal/store"
)

const feed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:picnic@example.com\r\nDTSTART:20250907T170000Z\r\nDTEND:20250907T190000Z\r\nSUMMARY:Parish Picnic\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestRunImportCachesUnderStorageDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	conf := config.DefaultConfig()
	conf.Storage = config.StorageConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "data")}
	backend, err := store.NewFileBackend(conf.Storage.Path)
	require.NoError(t, err)
	st := store.New(backend)
	require.NoError(t, st.Load(context.Background()))
	svc := newService(st, conf, time.UTC)

	require.NoError(t, runImport(context.Background(), svc, srv.URL+"/feed.ics", conf.Storage.CacheDir(), time.UTC))

	entries, err := os.ReadDir(filepath.Join(conf.Storage.Path, "ics-cache"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	var names []string
	st.View(func(d *store.Data) {
		for _, ev := range d.Events {
			names = append(names, ev.Name)
		}
	})
	assert.Contains(t, names, "Parish Picnic")
}
