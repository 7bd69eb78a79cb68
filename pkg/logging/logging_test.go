package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/notedcloud/noted/pkg/logging"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log, err := logging.New().FromWriter(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Equal(t, 0, buff.Len())

	log.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), `"message":"Test"`)

	log.Logger.Debug().Msg("hidden")
	require.NotContains(t, buff.String(), "hidden")
}

func TestLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log, err := logging.New().FromWriter(buff).Level("DEBUG").Make()
	require.NoError(t, err)

	log.Logger.Debug().Msg("shown")
	require.Contains(t, buff.String(), "shown")

	_, err = logging.New().Level("loud").Make()
	require.Error(t, err)
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noted.log")
	log, err := logging.New().FromPath(path).Pretty(true).Make()
	require.NoError(t, err)

	log.Logger.Warn().Str("page_id", "page_1_abc").Msg("written")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"page_id":"page_1_abc"`)
}
