package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/studentinfo/internal/pkg/filestorage"
)

func TestServeArtifact(t *testing.T) {
	root := t.TempDir()
	store, err := filestorage.NewLocalStorage(root, 1<<20)
	require.NoError(t, err)

	ref, err := store.Store(context.Background(), strings.NewReader("photo bytes"), "me.jpg")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".upload-inflight"), []byte("partial"), 0o600))

	router := newRouterWithArtifacts(&stubStudents{}, &stubContacts{}, store)

	w := do(router, httptest.NewRequest(http.MethodGet, "/uploads/"+ref, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "photo bytes", w.Body.String())

	for _, path := range []string{
		"/uploads/.upload-inflight",
		"/uploads/missing.jpg",
		"/uploads/..",
	} {
		w := do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.NotContains(t, w.Body.String(), "partial", path)
	}
}
